package display

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/core/timeline"
	"github.com/penwyp/go-apitrace/internal/util"
)

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellItem
	cellItemAlt
	cellFlagged
	cellMatch
	cellSelected
)

type cell struct {
	r    rune
	kind cellKind
}

func (s *Styles) style(kind cellKind) (lipgloss.Style, bool) {
	switch kind {
	case cellItem:
		return s.Item, true
	case cellItemAlt:
		return s.ItemAlt, true
	case cellFlagged:
		return s.Flagged, true
	case cellMatch:
		return s.Match, true
	case cellSelected:
		return s.Selected, true
	default:
		return lipgloss.Style{}, false
	}
}

func (s *Styles) fill(kind cellKind) rune {
	switch kind {
	case cellItemAlt:
		return s.FillAlt
	case cellFlagged:
		return s.FillFlagged
	case cellMatch:
		return s.FillMatch
	case cellSelected:
		return s.FillSelected
	default:
		return s.Fill
	}
}

// renderTimeline rasterizes the visible items of l into width x height
// cells. The layout's viewport must already match the region.
func renderTimeline(l *timeline.Layout, m *rows.Model, state model.InteractionState, styles *Styles, width, height int) []string {
	grid := make([][]cell, height)
	for y := range grid {
		grid[y] = make([]cell, width)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}

	lastY, alt := math.NaN(), false
	for _, item := range l.VisibleItems() {
		if item.Rect.Y != lastY {
			lastY, alt = item.Rect.Y, false
		}
		kind := cellItem
		if alt {
			kind = cellItemAlt
		}
		alt = !alt
		switch {
		case item.Row == state.SelectedRow:
			kind = cellSelected
		case state.SearchQuery != "" && m.IsSearchMatch(item.Row, state.SearchQuery):
			kind = cellMatch
		case item.Flagged:
			kind = cellFlagged
		}

		x0, x1 := span(item.Rect.X, item.Rect.Right(), width)
		y0, y1 := span(item.Rect.Y, item.Rect.Bottom(), height)
		glyph := styles.fill(kind)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				grid[y][x] = cell{r: glyph, kind: kind}
			}
		}
		if y0 < y1 {
			overlayName(grid[y0], m.Name(item.Row), x0, x1, kind)
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		lines[y] = renderCells(row, styles)
	}
	return lines
}

// span converts [from, to) in layout units to a clipped cell range that
// covers at least one cell when it intersects [0, limit).
func span(from, to float64, limit int) (int, int) {
	a := int(math.Floor(from))
	b := int(math.Ceil(to))
	if b <= a {
		b = a + 1
	}
	return max(a, 0), min(b, limit)
}

// overlayName writes name inside [x0, x1) when it fits with one cell of
// padding on each side. Names with wide runes are skipped.
func overlayName(row []cell, name string, x0, x1 int, kind cellKind) {
	runes := []rune(name)
	if x1-x0 < len(runes)+2 {
		return
	}
	for _, r := range runes {
		if runewidth.RuneWidth(r) != 1 {
			return
		}
	}
	for i, r := range runes {
		row[x0+1+i] = cell{r: r, kind: kind}
	}
}

// renderCells joins runs of equally styled cells.
func renderCells(row []cell, styles *Styles) string {
	var b strings.Builder
	for i := 0; i < len(row); {
		j := i
		for j < len(row) && row[j].kind == row[i].kind {
			j++
		}
		run := make([]rune, 0, j-i)
		for _, c := range row[i:j] {
			run = append(run, c.r)
		}
		if st, ok := styles.style(row[i].kind); ok {
			b.WriteString(st.Render(string(run)))
		} else {
			b.WriteString(string(run))
		}
		i = j
	}
	return b.String()
}

// renderLabels draws the thread id of each visible lane on the first row
// of its band.
func renderLabels(l *timeline.Layout, styles *Styles, width, height int) []string {
	labels := make([]string, height)
	lanes := l.Lanes().Lanes()
	cfg := l.Config()
	_, scrollY := l.Scroll()
	first, last := l.VisibleLanes()
	for li := first; li < last; li++ {
		y := int(math.Floor(float64(li)*cfg.LaneHeight + cfg.Margin - scrollY))
		if y < 0 || y >= height {
			continue
		}
		labels[y] = "t" + strconv.FormatUint(uint64(lanes[li].ThreadID), 10)
	}
	for y := range labels {
		labels[y] = styles.Label.Render(util.PadToWidth(labels[y], width-1, true) + "│")
	}
	return labels
}
