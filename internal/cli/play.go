package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/internal/presentation/tui"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/runner"
)

// DefaultDevice is the device namespace used by play when none is given.
const DefaultDevice = "local"

// PlayOptions configures a terminal quiz run.
type PlayOptions struct {
	DeviceID string
	Locator  string
	UTM      domain.UTM

	// Fresh purges the device before starting.
	Fresh bool

	// JSON switches to the line-delimited JSON protocol.
	JSON bool
	// Headless disables markdown rendering and approves checkout without asking.
	Headless bool
	// Quiet hides the banner and the resume/finish messages.
	Quiet bool

	Input  io.Reader
	Output io.Writer

	// Handler overrides the IO handler built from the options above.
	Handler runner.IOHandler
	// Signals enables SIGINT/SIGTERM handling.
	Signals bool
}

// RunPlay plays the quiz for one device in the terminal, resuming where it left off.
func RunPlay(ctx context.Context, app *App, opts PlayOptions) (runner.Result, error) {
	if opts.DeviceID == "" {
		opts.DeviceID = DefaultDevice
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	// Status lines would corrupt the JSON stream.
	quiet := opts.Quiet || opts.JSON

	if opts.Fresh {
		if err := app.Devices.Purge(ctx, opts.DeviceID); err != nil {
			return runner.Result{}, fmt.Errorf("failed to reset device %q: %w", opts.DeviceID, err)
		}
	}

	sess, err := app.Funnel.Open(ctx, app.Devices.Device(opts.DeviceID), funnel.InitOptions{
		Locator: opts.Locator,
		UTM:     opts.UTM,
	})
	if err != nil {
		return runner.Result{}, fmt.Errorf("failed to open session: %w", err)
	}

	if !quiet {
		if !opts.Headless {
			tui.PrintBanner(opts.Output, funnel.Version)
		}
		if pos := sess.Position(); pos > 0 {
			printSystemMessage(opts.Output, "Resuming at '%s'...", sess.Current().ID)
		}
	}
	app.Logger.Info("Session opened", "device", opts.DeviceID, "step", sess.Current().ID)

	r := runner.NewRunner(createRunnerOptions(app, opts)...)
	res, err := r.Run(ctx, sess)

	if !quiet {
		switch {
		case res.CheckoutURL != "":
			printSystemMessage(opts.Output, "Checkout: %s", res.CheckoutURL)
		case err == nil || isInterrupted(err):
			printSystemMessage(opts.Output, "Stopped at '%s'. Run again to resume.", sess.Current().ID)
		}
	}
	return res, handleExecutionError(err)
}

// createRunnerOptions prepares the functional options for the Runner.
func createRunnerOptions(app *App, opts PlayOptions) []runner.Option {
	ropts := []runner.Option{
		runner.WithLogger(app.Logger),
		runner.WithHeadless(opts.Headless),
		runner.WithSignals(opts.Signals),
	}

	switch {
	case opts.Handler != nil:
		ropts = append(ropts, runner.WithInputHandler(opts.Handler))
	case opts.JSON:
		ropts = append(ropts, runner.WithInputHandler(runner.NewJSONHandler(opts.Input, opts.Output)))
	case opts.Headless:
		ropts = append(ropts, runner.WithInputHandler(runner.NewTextHandler(opts.Input, opts.Output)))
	default:
		ropts = append(ropts, runner.WithInputHandler(
			runner.NewTextHandler(opts.Input, opts.Output, runner.WithTextHandlerRenderer(tui.NewRenderer())),
		))
	}
	return ropts
}
