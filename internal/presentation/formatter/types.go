// Package formatter renders trace rows, statistics and load reports as
// tables, JSON or CSV.
package formatter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/data/aggregator"
)

// ErrUnknownFormat is returned for an output format name no formatter handles.
var ErrUnknownFormat = errors.New("unknown output format")

// RowSource is the row view formatters print from. *rows.Model implements it.
type RowSource interface {
	Header(row int) model.PacketHeader
	Name(row int) string
	DisplayText(row int) model.DisplayText
	CellText(row int, col rows.Column) string
	CellStyleHints(row int, col rows.Column) rows.StyleHints
}

// RowSet selects the rows and columns to print.
type RowSet struct {
	Source  RowSource
	Rows    []int
	Columns []rows.Column
}

// RowFormatter writes a row set to w.
type RowFormatter interface {
	FormatRows(w io.Writer, set RowSet) error
}

// NewRowFormatter returns the formatter for "table", "json" or "csv".
func NewRowFormatter(format string) (RowFormatter, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return NewTableFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "csv":
		return NewCSVFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Overview is everything the summary report shows about one trace.
type Overview struct {
	Path       string
	FileHeader model.FileHeader
	Decoder    string
	FileSize   int64
	Indexed    int64
	Lanes      int
	FromCache  bool
	Stats      aggregator.Summary
	Report     *model.LoadReport
}
