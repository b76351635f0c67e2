package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	source   lipgloss.Style
	key      lipgloss.Style
	maybe    lipgloss.Style
	value    lipgloss.Style
	selected lipgloss.Style
	header   lipgloss.Style
	errLevel lipgloss.Style
	warn     lipgloss.Style
	dim      lipgloss.Style
}

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#0060C0", Dark: "#5FAFFF"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#8A8A8A"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#87D787"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFD75F"}
	colorError   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5F5F"}
)

func newStyles(useColor bool) styles {
	plain := lipgloss.NewStyle()
	if !useColor {
		return styles{
			source: plain, key: plain, maybe: plain, value: plain, selected: plain,
			header: plain, errLevel: plain, warn: plain, dim: plain,
		}
	}
	return styles{
		source:   plain.Bold(true).Foreground(colorAccent),
		key:      plain,
		maybe:    plain.Foreground(colorWarning),
		value:    plain.Foreground(colorSuccess),
		selected: plain.Bold(true).Underline(true),
		header:   plain.Bold(true),
		errLevel: plain.Bold(true).Foreground(colorError),
		warn:     plain.Bold(true).Foreground(colorWarning),
		dim:      plain.Foreground(colorMuted),
	}
}

// ShouldUseColor respects --no-color and NO_COLOR, and only colors a
// terminal stdout.
func ShouldUseColor(w io.Writer, noColorFlag bool) bool {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
