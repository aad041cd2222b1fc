package domain

// Local storage keys. They are scoped to one device namespace by the store.
const (
	KeyCurrentStep   = "quiz_current_step"
	KeyAnswers       = "quiz_answers"
	KeyUnitSystem    = "quiz_unit_system"
	KeySessionID     = "quiz_session_id"
	KeyEmailLocal    = "quiz_email"
	KeyInitialAnswer = "quiz_initial_answer"
)

// ConversionKeys lists the keys cleared once a visitor converts to a registered account.
var ConversionKeys = []string{KeyAnswers, KeyCurrentStep, KeySessionID, KeyEmailLocal}

// StorageKeys lists every key the sequencer reads or writes.
var StorageKeys = []string{KeyCurrentStep, KeyAnswers, KeyUnitSystem, KeySessionID, KeyEmailLocal, KeyInitialAnswer}
