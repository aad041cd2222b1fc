package domain

// Plan is one entry of the static pricing table.
type Plan struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	PriceCents   int    `json:"price_cents"`
	PriceDisplay string `json:"price_display"`
	PerDay       string `json:"per_day"`
	DurationDays int    `json:"duration_days"`
	Popular      bool   `json:"popular"`
}

var plans = []Plan{
	{Key: "1-month", Name: "1-Month Plan", PriceCents: 2999, PriceDisplay: "$29.99", PerDay: "$1.00", DurationDays: 30},
	{Key: "3-month", Name: "3-Month Plan", PriceCents: 4999, PriceDisplay: "$49.99", PerDay: "$0.55", DurationDays: 90, Popular: true},
	{Key: "12-month", Name: "12-Month Plan", PriceCents: 9999, PriceDisplay: "$99.99", PerDay: "$0.27", DurationDays: 365},
}

// Plans returns the offered plans in display order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// PlanByKey looks up a plan.
func PlanByKey(key string) (Plan, bool) {
	for _, p := range plans {
		if p.Key == key {
			return p, true
		}
	}
	return Plan{}, false
}

// CheckoutRequest is what the checkout collaborator receives.
type CheckoutRequest struct {
	Plan      Plan   `json:"plan"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}
