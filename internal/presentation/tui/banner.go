package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the datagpt banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"     _       _                    _   ", "#818cf8"},
		{"  __| | __ _| |_ __ _  __ _ _ __ | |_ ", "#a78bfa"},
		{" / _` |/ _` | __/ _` |/ _` | '_ \\| __|", "#c084fc"},
		{"| (_| | (_| | || (_| | (_| | |_) | |_ ", "#e879f9"},
		{" \\__,_|\\__,_|\\__\\__,_|\\__, | .__/ \\__|", "#f472b6"},
		{"                      |___/|_|        ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
