package domain

// UnitSystem is the visitor's measurement preference.
type UnitSystem string

const (
	Metric   UnitSystem = "metric"
	Imperial UnitSystem = "imperial"
)

// Valid reports whether u is imperial or metric.
func (u UnitSystem) Valid() bool {
	return u == Metric || u == Imperial
}

// ParseUnitSystem validates a raw unit system string.
func ParseUnitSystem(s string) (UnitSystem, error) {
	u := UnitSystem(s)
	if !u.Valid() {
		return "", Invalid("unit_system", ErrInvalidUnit)
	}
	return u, nil
}

// SessionState represents the current snapshot of one visitor's quiz.
type SessionState struct {
	// Position is the index of the current step in the catalog.
	Position int `json:"position"`

	// Answers accumulates responses keyed by step ID. Keys are only removed on reset.
	Answers Answers `json:"answers"`

	// UnitSystem persists independently of Position and Answers.
	UnitSystem UnitSystem `json:"unit_system"`

	// RemoteSessionID correlates the visitor with the remote mirror record.
	// Empty until a remote create succeeds; it never changes afterwards.
	RemoteSessionID string `json:"remote_session_id,omitempty"`
}

// NewSessionState creates a clean state at the first step.
func NewSessionState() SessionState {
	return SessionState{
		Position:   0,
		Answers:    make(Answers),
		UnitSystem: Metric,
	}
}

// Snapshot returns a deep copy of the state.
func (s SessionState) Snapshot() SessionState {
	out := s
	out.Answers = s.Answers.Clone()
	return out
}

// StepNumber is the 1-based step number reported to the remote mirror.
func (s SessionState) StepNumber() int {
	return s.Position + 1
}
