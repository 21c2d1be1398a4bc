package layout

import (
	"strings"

	"github.com/penwyp/go-apitrace/internal/util"
)

const (
	DefaultLabelWidth  = 10
	DefaultDetailLines = 6
)

// BaseStrategy provides helpers shared by the strategies and the renderer.
type BaseStrategy struct{}

// SeparatorLine returns a horizontal rule width cells wide.
func (b *BaseStrategy) SeparatorLine(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat("─", width)
}

// CenterText centers text within width cells.
func (b *BaseStrategy) CenterText(text string, width int) string {
	text = util.TruncateToWidth(text, width)
	padding := width - util.GetDisplayWidth(text)
	if padding <= 0 {
		return text
	}
	leftPad := padding / 2
	return strings.Repeat(" ", leftPad) + text + strings.Repeat(" ", padding-leftPad)
}

// Ruler draws a time axis width cells wide with a tick every `every`
// columns, labelled by labelAt. Labels that would overlap the next tick
// are dropped.
func (b *BaseStrategy) Ruler(width, every int, labelAt func(col int) string) string {
	if width <= 0 {
		return ""
	}
	if every < 1 {
		every = 1
	}
	line := []rune(strings.Repeat(" ", width))
	for col := 0; col < width; col += every {
		line[col] = '|'
		label := []rune(labelAt(col))
		if len(label) >= every || col+1+len(label) > width {
			continue
		}
		copy(line[col+1:], label)
	}
	return string(line)
}

// clampDetail limits the detail pane so the timeline keeps at least one row.
func clampDetail(lines, available int) int {
	if lines <= 0 {
		lines = DefaultDetailLines
	}
	// One extra row for the separator.
	h := lines + 1
	if h > available-1 {
		h = available - 1
	}
	return max(h, 0)
}
