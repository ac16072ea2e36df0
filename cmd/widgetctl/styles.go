package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

// styles renders a widget in its theme colours.
type styles struct {
	Frame     lipgloss.Style
	Title     lipgloss.Style
	Item      lipgloss.Style
	Done      lipgloss.Style
	Important lipgloss.Style
	Cursor    lipgloss.Style
	Dim       lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Key       lipgloss.Style

	Box     string
	Checked string
}

func newStyles(t widgetcfg.Theme) styles {
	primary := lipgloss.Color(t.PrimaryColor)
	accent := lipgloss.Color(t.AccentColor)
	font := lipgloss.Color(t.FontColor)

	s := styles{
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		Item: lipgloss.NewStyle().
			Foreground(font),
		Done: lipgloss.NewStyle().
			Foreground(font).
			Faint(true).
			Strikethrough(true),
		Important: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		Cursor: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		Dim: lipgloss.NewStyle().
			Faint(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E53E3E")),
		Success: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		Key: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),

		Box:     "○",
		Checked: "●",
	}
	if t.CheckboxStyle == "heart" {
		s.Box, s.Checked = "♡", "♥"
	}
	return s
}

// footer renders key hints as "key desc" pairs.
func (s styles) footer(pairs ...string) string {
	var out string
	for i := 0; i+1 < len(pairs); i += 2 {
		if out != "" {
			out += "  "
		}
		out += s.Key.Render(pairs[i]) + " " + s.Dim.Render(pairs[i+1])
	}
	return out
}
