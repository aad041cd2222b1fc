package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/funnel/pkg/domain"
)

// CheckoutPolicy is a middleware that can block a checkout before the visitor is
// redirected. It returns true if checkout should proceed.
type CheckoutPolicy func(ctx context.Context, plan domain.Plan) (bool, error)

// MultiPolicy chains multiple policies. The first refusal wins.
func MultiPolicy(policies ...CheckoutPolicy) CheckoutPolicy {
	return func(ctx context.Context, plan domain.Plan) (bool, error) {
		for _, policy := range policies {
			allowed, err := policy(ctx, plan)
			if err != nil {
				return false, err
			}
			if !allowed {
				return false, nil
			}
		}
		return true, nil
	}
}

// ConfirmationMiddleware asks the visitor through handler before allowing checkout.
func ConfirmationMiddleware(handler IOHandler) CheckoutPolicy {
	return func(ctx context.Context, plan domain.Plan) (bool, error) {
		msg := fmt.Sprintf("Proceed to checkout with the %s for %s? [y/N]", plan.Name, plan.PriceDisplay)
		if err := handler.SystemOutput(ctx, msg); err != nil {
			return false, err
		}

		input, err := handler.Input(ctx)
		if err != nil {
			return false, err
		}

		input = strings.TrimSpace(strings.ToLower(input))
		return input == "y" || input == "yes", nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() CheckoutPolicy {
	return func(ctx context.Context, plan domain.Plan) (bool, error) {
		return true, nil
	}
}
