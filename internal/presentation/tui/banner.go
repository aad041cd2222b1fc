package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var logo = []string{
	"  __                        _ ",
	" / _|_   _ _ __  _ __   ___| |",
	"| |_| | | | '_ \\| '_ \\ / _ \\ |",
	"|  _| |_| | | | | | | |  __/ |",
	"|_|  \\__,_|_| |_|_| |_|\\___|_|",
}

var gradient = []string{"#34d399", "#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa"}

// PrintBanner writes the funnel logo followed by the version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range logo {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(gradient[i%len(gradient)])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
