/*
Package runner plays a quiz session in a terminal or over a line-oriented pipe.

It is the bridge between a funnel.Session and a person (or a script) on the other end
of an io.Reader/io.Writer pair. Each turn the runner renders the current step as a
Screen, reads one line and applies it: an answer for the step's kind, or a command.

# Key Components

  - Runner: the play loop. It stops when the visitor quits or checks out.
  - IOHandler: decouples how screens are shown and lines are read.
  - TextHandler: interactive rendering, optionally through a markdown renderer.
  - JSONHandler: JSON-Lines screens for headless drivers.
  - CheckoutPolicy: confirms a plan before the visitor is sent to checkout.

# Usage

	sess, err := f.Open(ctx, store, funnel.InitOptions{})
	if err != nil {
		log.Fatal(err)
	}

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	res, err := r.Run(ctx, sess)
*/
package runner
