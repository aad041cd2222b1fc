package domain

// StepKind defines how a step is rendered and what kind of answer it produces.
type StepKind string

const (
	KindLanding         StepKind = "landing"
	KindSocialProof     StepKind = "social-proof"
	KindSingleSelect    StepKind = "single-select"
	KindMultiSelect     StepKind = "multi-select"
	KindInfo            StepKind = "info"
	KindInput           StepKind = "input"
	KindResultsChart    StepKind = "results-chart"
	KindResultsProgress StepKind = "results-progress"
	KindEmailCapture    StepKind = "email-capture"
	KindPricing         StepKind = "pricing"
)

// Valid reports whether k is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case KindLanding, KindSocialProof, KindSingleSelect, KindMultiSelect, KindInfo,
		KindInput, KindResultsChart, KindResultsProgress, KindEmailCapture, KindPricing:
		return true
	}
	return false
}

// AnswerKind returns the shape of the answer a step of this kind records.
func (k StepKind) AnswerKind() AnswerKind {
	switch k {
	case KindMultiSelect:
		return AnswerList
	case KindInput:
		return AnswerFields
	default:
		return AnswerText
	}
}

// NeedsChoices reports whether steps of this kind must declare choices.
func (k StepKind) NeedsChoices() bool {
	return k == KindLanding || k == KindSingleSelect || k == KindMultiSelect
}

// Choice is one selectable option of a select or landing step.
type Choice struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
}

// InputField describes one field of an input step.
type InputField struct {
	Name    string `json:"name" yaml:"name"`
	Label   string `json:"label" yaml:"label"`
	Suffix  string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	Numeric bool   `json:"numeric,omitempty" yaml:"numeric,omitempty"`

	// Unit limits the field to one unit system. Empty means always shown.
	Unit UnitSystem `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Info is the optional informational block shown by info and social-proof steps.
type Info struct {
	Text    string   `json:"text" yaml:"text"`
	Bullets []string `json:"bullets,omitempty" yaml:"bullets,omitempty"`
}

// Step represents one screen of the quiz.
type Step struct {
	ID        string   `json:"id" yaml:"id"`
	Kind      StepKind `json:"kind" yaml:"kind"`
	Prompt    string   `json:"prompt" yaml:"prompt"`
	SubPrompt string   `json:"sub_prompt,omitempty" yaml:"sub_prompt,omitempty"`

	Choices []Choice     `json:"choices,omitempty" yaml:"choices,omitempty"`
	Fields  []InputField `json:"fields,omitempty" yaml:"fields,omitempty"`

	// UnitToggle marks input steps whose values depend on the visitor's unit system.
	UnitToggle bool `json:"unit_toggle,omitempty" yaml:"unit_toggle,omitempty"`

	// SkipProgress excludes the step from the visible progress indicator.
	SkipProgress bool `json:"skip_progress,omitempty" yaml:"skip_progress,omitempty"`

	Image string `json:"image,omitempty" yaml:"image,omitempty"`
	Info  *Info  `json:"info,omitempty" yaml:"info,omitempty"`
}

// CountsTowardProgress reports whether the step is part of the progress indicator.
func (s Step) CountsTowardProgress() bool {
	return !s.SkipProgress
}

// FieldsFor returns the input fields shown under unit system u.
func (s Step) FieldsFor(u UnitSystem) []InputField {
	out := make([]InputField, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Unit == "" || f.Unit == u {
			out = append(out, f)
		}
	}
	return out
}

// HasChoice reports whether id names one of the step's choices.
func (s Step) HasChoice(id string) bool {
	for _, c := range s.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}
