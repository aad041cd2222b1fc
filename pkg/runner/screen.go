package runner

import (
	"fmt"
	"strings"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/projection"
)

// Screen is everything a frontend needs to present the current step.
type Screen struct {
	Position     int                 `json:"position"`
	Step         domain.Step         `json:"step"`
	Number       int                 `json:"number"`
	Total        int                 `json:"total"`
	ShowProgress bool                `json:"show_progress"`
	UnitSystem   domain.UnitSystem   `json:"unit_system"`
	Terminal     bool                `json:"terminal"`
	Answers      map[string]any      `json:"answers,omitempty"`
	Summary      *projection.Summary `json:"summary,omitempty"`
	Plans        []domain.Plan       `json:"plans,omitempty"`
}

// NewScreen captures the session's current step. Input fields are filtered by the
// visitor's unit system.
func NewScreen(sess *funnel.Session) Screen {
	st := sess.State()
	step := sess.Current()
	step.Fields = step.FieldsFor(st.UnitSystem)
	number, total, visible := sess.Progress()

	s := Screen{
		Position:     st.Position,
		Step:         step,
		Number:       number,
		Total:        total,
		ShowProgress: visible,
		UnitSystem:   st.UnitSystem,
		Terminal:     sess.IsTerminal(),
		Answers:      st.Answers.Plain(),
	}
	switch step.Kind {
	case domain.KindResultsChart, domain.KindResultsProgress, domain.KindPricing:
		sum := projection.Compute(st.Answers)
		s.Summary = &sum
	}
	if step.Kind == domain.KindPricing {
		s.Plans = domain.Plans()
	}
	return s
}

// Markdown renders the screen for a terminal.
func (s Screen) Markdown() string {
	var b strings.Builder

	if s.ShowProgress {
		fmt.Fprintf(&b, "*Step %d of %d*\n\n", s.Number, s.Total)
	}
	fmt.Fprintf(&b, "## %s\n\n", s.Step.Prompt)
	if s.Step.SubPrompt != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Step.SubPrompt)
	}

	if info := s.Step.Info; info != nil {
		if info.Text != "" {
			fmt.Fprintf(&b, "%s\n\n", info.Text)
		}
		for _, bullet := range info.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
		if len(info.Bullets) > 0 {
			b.WriteString("\n")
		}
	}

	for i, c := range s.Step.Choices {
		label := c.Label
		if c.Icon != "" {
			label = c.Icon + " " + label
		}
		fmt.Fprintf(&b, "%d. %s `%s`\n", i+1, label, c.ID)
	}
	for _, f := range s.Step.Fields {
		if f.Suffix != "" {
			fmt.Fprintf(&b, "- **%s** (%s) `%s`\n", f.Label, f.Suffix, f.Name)
		} else {
			fmt.Fprintf(&b, "- **%s** `%s`\n", f.Label, f.Name)
		}
	}
	if len(s.Step.Choices) > 0 || len(s.Step.Fields) > 0 {
		b.WriteString("\n")
	}

	if sum := s.Summary; sum != nil {
		fmt.Fprintf(&b, "**Now:** %.1f %s, body fat ~%d%%\n\n", sum.CurrentWeight, sum.UnitLabel, sum.CurrentFat.Percent)
		fmt.Fprintf(&b, "**Goal:** %.1f %s, body fat ~%d%%\n\n", sum.TargetWeight, sum.UnitLabel, sum.TargetFat.Percent)
		fmt.Fprintf(&b, "**First week:** -%.1f %s\n\n", sum.SevenDayLoss, sum.UnitLabel)
		if sum.Clamped {
			fmt.Fprintf(&b, "_Your stated goal of %.1f %s was adjusted to a realistic target._\n\n", sum.StatedTarget, sum.UnitLabel)
		}
	}

	for i, p := range s.Plans {
		popular := ""
		if p.Popular {
			popular = " (most popular)"
		}
		fmt.Fprintf(&b, "%d. **%s** %s, %s per day%s `%s`\n", i+1, p.Name, p.PriceDisplay, p.PerDay, popular, p.Key)
	}
	if len(s.Plans) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "_%s_\n", s.Hint())
	return b.String()
}

// Hint tells the visitor what the step expects.
func (s Screen) Hint() string {
	switch s.Step.Kind {
	case domain.KindLanding, domain.KindSingleSelect:
		return "Type the number or id of your answer."
	case domain.KindMultiSelect:
		return "Type one or more numbers or ids, separated by commas."
	case domain.KindInput:
		if s.Step.UnitToggle {
			return "Type the values in order, or name=value pairs. Use :unit metric or :unit imperial to switch units."
		}
		return "Type the values in order, or name=value pairs."
	case domain.KindEmailCapture:
		return "Type your email address."
	case domain.KindPricing:
		return "Type a plan number to check out, or quit to leave."
	}
	return "Press Enter to continue."
}
