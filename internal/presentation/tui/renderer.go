package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer transforms Markdown before it is printed.
type Renderer func(string) (string, error)

// NewRenderer returns a glamour renderer that picks a light or dark style
// from the terminal background.
func NewRenderer() (Renderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width()),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// Plain returns Markdown unchanged. Used when stdout is not a terminal.
func Plain(md string) (string, error) {
	return md, nil
}

// ForStdout chooses NewRenderer when stdout is a terminal and Plain otherwise.
func ForStdout() Renderer {
	if !IsTerminal(os.Stdout) {
		return Plain
	}
	r, err := NewRenderer()
	if err != nil {
		return Plain
	}
	return r
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return min(w-4, 120)
	}
	return 80
}
