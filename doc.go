/*
Package funnel is the quiz funnel sequencer: a linear state machine that walks a visitor
through an ordered catalog of steps, keeps their answers on the device, and mirrors
progress to a remote session store without ever waiting for it.

# Concept

The catalog is immutable and shared. Each visitor gets a Session bound to a device-scoped
LocalStore, so a reload or a restart resumes exactly where they left off. The remote
mirror is best-effort: it is used for analytics and lead capture, never as the source of
truth.

# Usage

	ctx := context.Background()
	f := funnel.New(funnel.WithSync(mirror.New(memory.NewSessionStore())))

	store := memory.NewLocal()
	sess, err := f.Open(ctx, store, funnel.InitOptions{})
	if err != nil {
		log.Fatal(err)
	}

	// Landing step: the visitor picks how much they want to lose.
	if err := sess.RecordSingleAnswer(ctx, "weight-loss-goal", domain.Text("10-20")); err != nil {
		log.Fatal(err)
	}

Hosts supply a Locator (e.g. a URL slug naming a step) to jump directly to a step, and
report history navigation with Navigate so the device position never diverges from the
host's own history.
*/
package funnel
