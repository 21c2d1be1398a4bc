package rows

import (
	"fmt"
	"strings"
)

// Column identifies a column of the row view.
type Column int

const (
	ColIndex Column = iota
	ColThread
	ColName
	ColBegin
	ColEnd
	ColDuration
	ColSize
	ColSummary
	numColumns
)

var columnTitles = [numColumns]string{
	ColIndex:    "#",
	ColThread:   "Thread",
	ColName:     "Call",
	ColBegin:    "Begin",
	ColEnd:      "End",
	ColDuration: "Duration",
	ColSize:     "Size",
	ColSummary:  "Summary",
}

// Title is the header text of the column.
func (c Column) Title() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("col%d", int(c))
	}
	return columnTitles[c]
}

func (c Column) String() string { return c.Title() }

// ParseColumn maps a case-insensitive title or short key to a column.
func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "#", "index":
		return ColIndex, nil
	case "thread", "tid":
		return ColThread, nil
	case "call", "name":
		return ColName, nil
	case "begin":
		return ColBegin, nil
	case "end":
		return ColEnd, nil
	case "duration", "dur":
		return ColDuration, nil
	case "size":
		return ColSize, nil
	case "summary":
		return ColSummary, nil
	}
	return 0, fmt.Errorf("unknown column %q", s)
}

// Alignment is the preferred horizontal alignment of a cell.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// StyleHints describe how a cell would like to be drawn. They are hints:
// a presentation layer may ignore any of them.
type StyleHints struct {
	Align     Alignment
	Monospace bool
	// Flagged marks rows with a malformed time interval.
	Flagged bool
	// Undecoded marks text produced without a decoder or from a body that
	// could not be read.
	Undecoded bool
}
