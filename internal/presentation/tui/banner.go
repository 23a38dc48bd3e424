package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner for tagml.
func PrintBanner(w io.Writer, p termenv.Profile) {
	lines := []struct{ text, color string }{
		{" _                    _ ", "#818cf8"},
		{"| |_ __ _  __ _ _ __ | |", "#a78bfa"},
		{"| __/ _` |/ _` | '  \\| |", "#c084fc"},
		{"| || (_| | (_| | | | | |", "#e879f9"},
		{" \\__\\__,_|\\__, |_|_|_|_|", "#f472b6"},
		{"          |___/         ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
