package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	maxWidth     = 100
)

// NewRenderer returns a function that renders markdown using glamour, wrapped to the
// width of the terminal on stdout.
func NewRenderer() func(string) (string, error) {
	return NewRendererWidth(TerminalWidth(os.Stdout.Fd()))
}

// NewRendererWidth is NewRenderer with a fixed word-wrap width.
func NewRendererWidth(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return "", err
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// TerminalWidth reports the column count of fd, capped for readability.
// Non-terminals get a default.
func TerminalWidth(fd uintptr) int {
	if !term.IsTerminal(int(fd)) {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return min(w, maxWidth)
}
