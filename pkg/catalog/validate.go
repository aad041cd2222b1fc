package catalog

import (
	"fmt"
	"strings"

	"github.com/aretw0/funnel/pkg/domain"
)

// Validate checks a step list for structural problems and reports all of them at once.
func Validate(steps []domain.Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("catalog has no steps")
	}

	var problems []string
	seen := make(map[string]bool, len(steps))

	for i, s := range steps {
		where := fmt.Sprintf("step %d (%s)", i, s.ID)

		switch {
		case s.ID == "":
			problems = append(problems, fmt.Sprintf("step %d: missing id", i))
		case s.ID == domain.KeyEmail:
			problems = append(problems, fmt.Sprintf("%s: id %q is reserved", where, domain.KeyEmail))
		case seen[s.ID]:
			problems = append(problems, fmt.Sprintf("%s: duplicate id", where))
		}
		seen[s.ID] = true

		if !s.Kind.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown kind %q", where, s.Kind))
			continue
		}

		if s.Kind.NeedsChoices() {
			if len(s.Choices) == 0 {
				problems = append(problems, fmt.Sprintf("%s: %s step needs choices", where, s.Kind))
			}
			choiceIDs := make(map[string]bool, len(s.Choices))
			for _, c := range s.Choices {
				if c.ID == "" {
					problems = append(problems, fmt.Sprintf("%s: choice without id", where))
				} else if choiceIDs[c.ID] {
					problems = append(problems, fmt.Sprintf("%s: duplicate choice %q", where, c.ID))
				}
				choiceIDs[c.ID] = true
			}
		}

		if s.Kind == domain.KindInput {
			if len(s.Fields) == 0 {
				problems = append(problems, fmt.Sprintf("%s: input step needs fields", where))
			}
			for _, f := range s.Fields {
				if f.Name == "" {
					problems = append(problems, fmt.Sprintf("%s: field without name", where))
				}
				if f.Unit != "" && (!f.Unit.Valid() || !s.UnitToggle) {
					problems = append(problems, fmt.Sprintf("%s: field %q: unit %q needs a valid unit system on a unit_toggle step", where, f.Name, f.Unit))
				}
			}
		} else if s.UnitToggle {
			problems = append(problems, fmt.Sprintf("%s: unit_toggle is only valid on input steps", where))
		}

		if s.Kind == domain.KindPricing && i != len(steps)-1 {
			problems = append(problems, fmt.Sprintf("%s: pricing must be the last step", where))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}
