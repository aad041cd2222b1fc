package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/domain"
)

// ErrInterrupted is returned when a signal stops the runner while it waits for input.
var ErrInterrupted = errors.New("interrupted")

// Runner plays a quiz session using an IOHandler.
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler over Input/Output is used.
	Handler IOHandler

	// Policy confirms checkout. If nil, headless runners auto-approve and interactive
	// ones ask the visitor.
	Policy CheckoutPolicy

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	signals bool
}

// Result describes how a run ended.
type Result struct {
	// Position is the step the session was on when the run ended.
	Position int

	// Plan and CheckoutURL are set when the visitor checked out.
	Plan        string
	CheckoutURL string
}

// NewRunner creates a new Runner with default Stdin/Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Input:   os.Stdin,
		Output:  os.Stdout,
		Logger:  logging.NewNop(),
		signals: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plays sess until the visitor quits, input ends, or a checkout link is produced.
// Validation errors are shown to the visitor and the step is asked again; any other
// error stops the run.
func (r *Runner) Run(ctx context.Context, sess *funnel.Session) (Result, error) {
	handler := r.resolveHandler()
	policy := r.resolvePolicy(handler)

	inputCtx := func() context.Context { return ctx }
	var signals *SignalManager
	if r.signals {
		signals = NewSignalManager(ctx)
		defer signals.Stop()
		inputCtx = signals.Context
	}

	lastRendered := -1
	for {
		screen := NewScreen(sess)
		if screen.Position != lastRendered {
			r.Logger.Debug("step rendered", "step_id", screen.Step.ID, "position", screen.Position)
			lastRendered = screen.Position
		}
		if err := handler.Output(ctx, screen); err != nil {
			return r.result(sess), fmt.Errorf("output error: %w", err)
		}

		line, err := handler.Input(inputCtx())
		if err != nil {
			if signals != nil {
				signals.CheckRace()
			}
			if ctx.Err() != nil {
				return r.result(sess), ctx.Err()
			}
			if signals != nil && signals.Context().Err() != nil {
				return r.result(sess), ErrInterrupted
			}
			if errors.Is(err, io.EOF) {
				return r.result(sess), nil
			}
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				_ = handler.SystemOutput(ctx, "Error: "+err.Error())
				continue
			}
			return r.result(sess), fmt.Errorf("input error: %w", err)
		}

		if IsQuit(line) {
			return r.result(sess), nil
		}

		res, done, err := r.apply(ctx, sess, handler, policy, screen, line)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				if err := handler.SystemOutput(ctx, "Error: "+err.Error()); err != nil {
					return r.result(sess), err
				}
				continue
			}
			return r.result(sess), err
		}
		if done {
			return res, nil
		}
	}
}

// apply performs one line of input against the session. done reports that the run
// is over.
func (r *Runner) apply(
	ctx context.Context,
	sess *funnel.Session,
	handler IOHandler,
	policy CheckoutPolicy,
	screen Screen,
	line string,
) (Result, bool, error) {
	if cmd, ok := ParseCommand(line); ok {
		return Result{}, false, r.command(ctx, sess, handler, cmd)
	}

	if screen.Step.Kind == domain.KindPricing {
		if line == "" {
			return Result{}, false, handler.SystemOutput(ctx, screen.Hint())
		}
		return r.checkout(ctx, sess, handler, policy, line)
	}
	return Result{}, false, Submit(ctx, sess, line)
}

// Submit records one line of visitor input against the current step: an email, a
// selection, field values, or an acknowledgement for steps that ask for nothing.
// Pricing steps are settled by Session.Checkout instead.
func Submit(ctx context.Context, sess *funnel.Session, line string) error {
	step := sess.Current()
	unit := sess.State().UnitSystem

	switch step.Kind {
	case domain.KindPricing:
		return domain.Invalid("step_id", domain.ErrAnswerKind)
	case domain.KindEmailCapture:
		return sess.RecordEmail(ctx, line)
	case domain.KindMultiSelect:
		return sess.RecordMultiAnswer(ctx, step.ID, ParseAnswer(step, unit, line).List)
	case domain.KindLanding, domain.KindSingleSelect, domain.KindInput:
		return sess.RecordSingleAnswer(ctx, step.ID, ParseAnswer(step, unit, line))
	default:
		return sess.Continue(ctx)
	}
}

func (r *Runner) command(ctx context.Context, sess *funnel.Session, handler IOHandler, cmd Command) error {
	switch cmd.Name {
	case CmdBack:
		return sess.GoBack(ctx)
	case CmdGoto:
		return sess.NavigateTo(ctx, cmd.Arg)
	case CmdUnit:
		return sess.SetUnitSystem(ctx, domain.UnitSystem(cmd.Arg))
	case CmdHelp:
		return handler.SystemOutput(ctx, helpText)
	}
	return handler.SystemOutput(ctx, fmt.Sprintf("Unknown command %q. %s", cmd.Name, helpText))
}

const helpText = "Commands: :back, :goto <step-id>, :unit metric|imperial, :help, quit"

func (r *Runner) checkout(
	ctx context.Context,
	sess *funnel.Session,
	handler IOHandler,
	policy CheckoutPolicy,
	line string,
) (Result, bool, error) {
	plan, ok := ResolvePlan(line)
	if !ok {
		return Result{}, false, domain.Invalid("plan", domain.ErrUnknownPlan)
	}

	allowed, err := policy(ctx, plan)
	if err != nil {
		return Result{}, false, fmt.Errorf("checkout policy error: %w", err)
	}
	if !allowed {
		return Result{}, false, handler.SystemOutput(ctx, "Checkout cancelled.")
	}

	url, err := sess.Checkout(ctx, plan.Key)
	if errors.Is(err, funnel.ErrCheckoutUnavailable) {
		r.Logger.Warn("checkout requested without a checkout provider", "plan", plan.Key)
		return r.result(sess), true, handler.SystemOutput(ctx, "Checkout is not available right now.")
	}
	if err != nil {
		return Result{}, false, err
	}

	if err := handler.SystemOutput(ctx, "Continue to checkout: "+url); err != nil {
		return Result{}, false, err
	}
	res := r.result(sess)
	res.Plan = plan.Key
	res.CheckoutURL = url
	return res, true, nil
}

func (r *Runner) result(sess *funnel.Session) Result {
	return Result{Position: sess.Position()}
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	th := NewTextHandler(r.Input, r.Output, WithTextHandlerRenderer(r.Renderer))
	// Memoize so a second Run keeps the same input pump.
	r.Handler = th
	return th
}

// resolvePolicy returns the configured or default checkout policy.
func (r *Runner) resolvePolicy(h IOHandler) CheckoutPolicy {
	if r.Policy != nil {
		return r.Policy
	}
	if r.Headless {
		return AutoApproveMiddleware()
	}
	return ConfirmationMiddleware(h)
}
