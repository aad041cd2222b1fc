package http

import (
	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/projection"
)

// Progress is the progress indicator of the current step.
type Progress struct {
	Number  int  `json:"number"`
	Total   int  `json:"total"`
	Visible bool `json:"visible"`
}

// View is everything a client needs to render the current step.
type View struct {
	DeviceID        string              `json:"device_id"`
	Position        int                 `json:"position"`
	StepNumber      int                 `json:"step_number"`
	Step            domain.Step         `json:"step"`
	Progress        Progress            `json:"progress"`
	Terminal        bool                `json:"terminal"`
	UnitSystem      domain.UnitSystem   `json:"unit_system"`
	Answers         domain.Answers      `json:"answers"`
	RemoteSessionID string              `json:"remote_session_id,omitempty"`
	Summary         *projection.Summary `json:"summary,omitempty"`
	Plans           []domain.Plan       `json:"plans,omitempty"`
}

// NewView renders the session's current step.
func NewView(deviceID string, sess *funnel.Session) View {
	st := sess.State()
	step := sess.Current()
	step.Fields = step.FieldsFor(st.UnitSystem)
	number, total, visible := sess.Progress()

	v := View{
		DeviceID:        deviceID,
		Position:        st.Position,
		StepNumber:      st.StepNumber(),
		Step:            step,
		Progress:        Progress{Number: number, Total: total, Visible: visible},
		Terminal:        sess.IsTerminal(),
		UnitSystem:      st.UnitSystem,
		Answers:         st.Answers,
		RemoteSessionID: st.RemoteSessionID,
	}

	switch step.Kind {
	case domain.KindResultsChart, domain.KindResultsProgress, domain.KindPricing:
		sum := projection.Compute(st.Answers)
		v.Summary = &sum
	}
	if step.Kind == domain.KindPricing {
		v.Plans = domain.Plans()
	}
	return v
}
