package formatter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/penwyp/go-apitrace/internal/core/rows"
)

// CSVFormatter prints rows as CSV with unabbreviated numbers. The duration
// of a malformed packet is left empty.
type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

func (f *CSVFormatter) FormatRows(w io.Writer, set RowSet) error {
	cw := csv.NewWriter(w)

	headers := make([]string, len(set.Columns))
	for i, col := range set.Columns {
		headers[i] = col.Title()
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	record := make([]string, len(set.Columns))
	for _, row := range set.Rows {
		for i, col := range set.Columns {
			record[i] = rawCell(set.Source, row, col)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func rawCell(src RowSource, row int, col rows.Column) string {
	h := src.Header(row)
	switch col {
	case rows.ColDuration:
		if !h.WellFormed() {
			return ""
		}
		return strconv.FormatUint(h.Duration(), 10)
	case rows.ColSize:
		return strconv.FormatUint(uint64(h.Size), 10)
	default:
		return src.CellText(row, col)
	}
}
