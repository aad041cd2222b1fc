// Package projection computes the display metrics shown by the results and pricing
// steps. Every function is pure: the same answers always produce the same Summary.
package projection

import (
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/funnel/pkg/domain"
)

// Step IDs and field names the calculator reads from the answer map.
const (
	WeightStep        = "weight"
	DesiredWeightStep = "desired-weight"
	CurrentBodyStep   = "current-body-type"
	TargetBodyStep    = "target-body-type"

	fieldWeight        = "weight"
	fieldWeightLbs     = "weight_lbs"
	fieldDesiredWeight = "desired_weight"
	fieldUnit          = "unit"
)

const (
	// KgPerLb converts pounds to kilograms.
	KgPerLb = 0.453592

	// MaxLossRatio caps the loss implied by a target over the program horizon.
	MaxLossRatio = 0.18

	// WeeklyLossRatio is the share of current weight shown as the first-week estimate.
	WeeklyLossRatio = 0.038
)

// Default weights used when the visitor has not answered yet.
var (
	defaultCurrent = map[domain.UnitSystem]float64{domain.Metric: 78, domain.Imperial: 172}
	defaultTarget  = map[domain.UnitSystem]float64{domain.Metric: 63, domain.Imperial: 139}
)

// Summary holds every derived value a results renderer needs.
type Summary struct {
	Unit      domain.UnitSystem `json:"unit"`
	UnitLabel string            `json:"unit_label"`

	CurrentWeight float64 `json:"current_weight"`
	StatedTarget  float64 `json:"stated_target"`
	TargetWeight  float64 `json:"target_weight"`
	Clamped       bool    `json:"clamped"`

	SevenDayLoss float64 `json:"seven_day_loss"`

	CurrentBody string `json:"current_body"`
	TargetBody  string `json:"target_body"`
	CurrentFat  Bucket `json:"current_fat"`
	TargetFat   Bucket `json:"target_fat"`
}

// Compute derives the Summary from the answer map.
func Compute(answers domain.Answers) Summary {
	unit, current, target := Weights(answers)

	s := Summary{
		Unit:          unit,
		UnitLabel:     UnitLabel(unit),
		CurrentWeight: current,
		StatedTarget:  target,
		TargetWeight:  EffectiveTarget(current, target),
		SevenDayLoss:  SevenDayLoss(current),
		CurrentBody:   bodyLabel(answers, CurrentBodyStep, "flabby"),
		TargetBody:    bodyLabel(answers, TargetBodyStep, "fit"),
	}
	s.Clamped = s.TargetWeight > round1(target)
	s.CurrentFat = CurrentBodyFat(s.CurrentBody)
	s.TargetFat = TargetBodyFat(s.TargetBody)
	return s
}

// Weights resolves the display unit and the current and stated target weights in
// that unit. The unit comes from the weight answer; a desired weight recorded in the
// other unit is converted.
func Weights(answers domain.Answers) (domain.UnitSystem, float64, float64) {
	unit := domain.Metric
	weight, hasWeight := answers.Fields(WeightStep)
	if hasWeight && weight[fieldUnit] == string(domain.Imperial) {
		unit = domain.Imperial
	}

	current := defaultCurrent[unit]
	if hasWeight {
		if v, ok := firstNumber(weight, fieldWeight, fieldWeightLbs); ok {
			current = v
		}
	}

	target := defaultTarget[unit]
	if desired, ok := answers.Fields(DesiredWeightStep); ok {
		if v, ok := firstNumber(desired, fieldDesiredWeight, fieldWeight); ok {
			from := unit
			if u := domain.UnitSystem(desired[fieldUnit]); u.Valid() {
				from = u
			}
			target = Convert(v, from, unit)
		}
	}
	return unit, current, target
}

// EffectiveTarget clamps the stated target so it never implies losing more than
// MaxLossRatio of the current weight. The result is rounded to one decimal.
func EffectiveTarget(current, stated float64) float64 {
	return round1(math.Max(stated, current*(1-MaxLossRatio)))
}

// SevenDayLoss estimates the first-week loss in display units, rounded to a whole unit.
func SevenDayLoss(current float64) float64 {
	return math.Round(current * WeeklyLossRatio)
}

// Convert converts a weight between unit systems, rounded to one decimal.
func Convert(v float64, from, to domain.UnitSystem) float64 {
	switch {
	case from == to:
		return v
	case from == domain.Imperial:
		return round1(v * KgPerLb)
	default:
		return round1(v / KgPerLb)
	}
}

// UnitLabel returns the short weight unit for u.
func UnitLabel(u domain.UnitSystem) string {
	if u == domain.Imperial {
		return "lbs"
	}
	return "kg"
}

func firstNumber(fields map[string]string, names ...string) (float64, bool) {
	for _, name := range names {
		raw := strings.TrimSpace(fields[name])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func bodyLabel(answers domain.Answers, step, fallback string) string {
	if v, ok := answers.Text(step); ok && v != "" {
		return v
	}
	return fallback
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
