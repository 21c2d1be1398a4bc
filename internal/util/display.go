package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ClearScreen       = "\033[2J"     // Clear entire screen
	ClearToLineEnd    = "\033[K"      // Clear from cursor to end of line
	ClearScrollback   = "\033[3J"     // Clear scrollback buffer
	ResetScrollRegion = "\033[r"      // Reset scroll region
	MoveCursorHome    = "\033[H"      // Move cursor to home position
	HideCursor        = "\033[?25l"   // Hide cursor
	ShowCursor        = "\033[?25h"   // Show cursor
	EnterAltScreen    = "\033[?1049h" // Switch to the alternate screen buffer
	ExitAltScreen     = "\033[?1049l" // Return to the main screen buffer
)

// GetDisplayWidth calculates the actual display width of a string, accounting for wide runes
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// TruncateToWidth cuts s so that it occupies at most width cells, marking
// the cut with an ellipsis.
func TruncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// PadToWidth pads s with spaces to exactly width cells, truncating if needed.
func PadToWidth(s string, width int, leftAlign bool) string {
	s = TruncateToWidth(s, width)
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	if leftAlign {
		return s + strings.Repeat(" ", pad)
	}
	return strings.Repeat(" ", pad) + s
}

// CreateProgressBar creates a progress bar with the given percentage and width
func CreateProgressBar(percentage float64, width int) string {
	if width < 10 {
		width = 12
	}
	barWidth := width - 2
	filled := int((percentage / 100) * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// MoveCursor returns ANSI sequence to move cursor to specific position
func MoveCursor(row, col int) string {
	return fmt.Sprintf("\033[%d;%dH", row, col)
}
