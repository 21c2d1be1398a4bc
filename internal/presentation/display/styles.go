// Package display draws the trace timeline viewer on a terminal.
package display

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles and fill glyphs of the viewer.
type Styles struct {
	Title      lipgloss.Style
	Ruler      lipgloss.Style
	Label      lipgloss.Style
	Item       lipgloss.Style
	ItemAlt    lipgloss.Style
	Flagged    lipgloss.Style
	Match      lipgloss.Style
	Selected   lipgloss.Style
	Detail     lipgloss.Style
	Status     lipgloss.Style
	StatusWarn lipgloss.Style
	Dialog     lipgloss.Style

	// Fill glyphs per item kind. Colored styles fill with spaces and let
	// the background show; plain styles need visible glyphs.
	Fill         rune
	FillAlt      rune
	FillFlagged  rune
	FillMatch    rune
	FillSelected rune
}

// DefaultStyles is the colored theme.
func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		Ruler:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Label:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Item:       lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("39")),
		ItemAlt:    lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("33")),
		Flagged:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("160")),
		Match:      lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220")),
		Selected:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("15")),
		Detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Status:     lipgloss.NewStyle().Reverse(true),
		StatusWarn: lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")),
		Dialog:     lipgloss.NewStyle().Bold(true),

		Fill:         ' ',
		FillAlt:      ' ',
		FillFlagged:  '!',
		FillMatch:    ' ',
		FillSelected: ' ',
	}
}

// PlainStyles draws without escape sequences, for dumb terminals and tests.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title: plain, Ruler: plain, Label: plain,
		Item: plain, ItemAlt: plain, Flagged: plain, Match: plain, Selected: plain,
		Detail: plain, Status: plain, StatusWarn: plain, Dialog: plain,

		Fill:         '█',
		FillAlt:      '▓',
		FillFlagged:  '!',
		FillMatch:    '*',
		FillSelected: '#',
	}
}
