package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  ____  _ _       _     ____  _ _       _   `, "#818cf8"},
	{` |  _ \(_) |_ ___| |__ |  _ \(_) | ___ | |_ `, "#a78bfa"},
	{` | |_) | | __/ __| '_ \| |_) | | |/ _ \| __|`, "#c084fc"},
	{` |  __/| | || (__| | | |  __/| | | (_) | |_ `, "#e879f9"},
	{` |_|   |_|\__\___|_| |_|_|   |_|_|\___/ \__|`, "#f472b6"},
}

// PrintBanner writes the PitchPilot banner to w, colored when w is a terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
