package runner

import (
	"context"
)

// IOHandler defines the strategy for interacting with the visitor.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the current step.
	Output(ctx context.Context, screen Screen) error

	// Input reads one response line.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (errors, confirmations, the checkout link).
	// This is distinct from step rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
