package formatter

import (
	"io"
	"strings"

	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/util"
)

// DefaultMaxCellWidth bounds the width of free-text cells.
const DefaultMaxCellWidth = 48

// Table is a bordered text table. Widths are measured in terminal cells.
type Table struct {
	Headers []string
	Align   []rows.Alignment
	Rows    [][]string
	Footer  []string
	// MaxWidth caps every column; zero means unlimited.
	MaxWidth int
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	widths := t.calculateColumnWidths()
	var b strings.Builder

	t.printBorder(&b, widths, "top")
	t.printRow(&b, t.Headers, widths, true)
	t.printBorder(&b, widths, "middle")
	for _, row := range t.Rows {
		t.printRow(&b, row, widths, false)
	}
	if len(t.Footer) > 0 {
		t.printBorder(&b, widths, "middle")
		t.printRow(&b, t.Footer, widths, false)
	}
	t.printBorder(&b, widths, "bottom")

	_, err := io.WriteString(w, b.String())
	return err
}

// calculateColumnWidths sizes each column to its widest cell
func (t *Table) calculateColumnWidths() []int {
	widths := make([]int, len(t.Headers))
	measure := func(cells []string) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if cw := util.GetDisplayWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}
	measure(t.Footer)

	if t.MaxWidth > 0 {
		for i := range widths {
			widths[i] = min(widths[i], t.MaxWidth)
		}
	}
	return widths
}

// printBorder draws a horizontal rule (top, middle, bottom)
func (t *Table) printBorder(b *strings.Builder, widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	default:
		left, middle, right = "└", "┴", "┘"
	}

	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteByte('\n')
}

func (t *Table) printRow(b *strings.Builder, values []string, widths []int, header bool) {
	b.WriteString("│")
	for i, width := range widths {
		var value string
		if i < len(values) {
			value = values[i]
		}
		left := header || i >= len(t.Align) || t.Align[i] == rows.AlignLeft
		b.WriteByte(' ')
		b.WriteString(util.PadToWidth(value, width, left))
		b.WriteString(" │")
	}
	b.WriteByte('\n')
}

// TableFormatter prints rows as a bordered table.
type TableFormatter struct {
	maxCellWidth int
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{maxCellWidth: DefaultMaxCellWidth}
}

// WithMaxCellWidth sets the column width cap; n <= 0 disables it.
func (f *TableFormatter) WithMaxCellWidth(n int) *TableFormatter {
	f.maxCellWidth = n
	return f
}

func (f *TableFormatter) FormatRows(w io.Writer, set RowSet) error {
	t := &Table{MaxWidth: f.maxCellWidth}
	for _, col := range set.Columns {
		t.Headers = append(t.Headers, col.Title())
	}
	for _, row := range set.Rows {
		cells := make([]string, len(set.Columns))
		for i, col := range set.Columns {
			cells[i] = set.Source.CellText(row, col)
		}
		t.Rows = append(t.Rows, cells)
	}
	if len(set.Rows) > 0 {
		t.Align = make([]rows.Alignment, len(set.Columns))
		for i, col := range set.Columns {
			t.Align[i] = set.Source.CellStyleHints(set.Rows[0], col).Align
		}
	}
	return t.Render(w)
}
