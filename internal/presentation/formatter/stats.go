package formatter

import (
	"fmt"
	"strconv"

	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/data/aggregator"
	"github.com/penwyp/go-apitrace/internal/util"
)

// CallTable lays out per-call statistics. top <= 0 keeps every call.
func CallTable(s aggregator.Summary, top int) *Table {
	t := &Table{
		Headers: []string{"Call", "Count", "Total", "Mean", "Min", "Max", "Bytes"},
		Align: []rows.Alignment{
			rows.AlignLeft, rows.AlignRight, rows.AlignRight, rows.AlignRight,
			rows.AlignRight, rows.AlignRight, rows.AlignRight,
		},
		MaxWidth: DefaultMaxCellWidth,
	}
	stats := s.ByName
	if top > 0 && len(stats) > top {
		stats = stats[:top]
	}
	for _, st := range stats {
		t.Rows = append(t.Rows, []string{
			st.Key,
			countText(st),
			util.FormatTicks(st.Total),
			formatMean(st.Mean()),
			util.FormatTicks(st.Min),
			util.FormatTicks(st.Max),
			util.FormatBytes(st.Bytes),
		})
	}
	t.Footer = []string{"Total", util.FormatThousands(uint64(s.Packets)), "", "", "", "", ""}
	return t
}

// ThreadTable lays out per-thread statistics.
func ThreadTable(s aggregator.Summary) *Table {
	t := &Table{
		Headers: []string{"Thread", "Packets", "Busy", "Span", "Utilization", "Max"},
		Align: []rows.Alignment{
			rows.AlignRight, rows.AlignRight, rows.AlignRight,
			rows.AlignRight, rows.AlignRight, rows.AlignRight,
		},
	}
	for _, ts := range s.Threads {
		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(ts.ThreadID), 10),
			countText(ts.Stat),
			util.FormatTicks(ts.Total),
			fmt.Sprintf("%s..%s", util.FormatTicks(ts.Span.Begin), util.FormatTicks(ts.Span.End)),
			fmt.Sprintf("%.1f%%", ts.Utilization()*100),
			util.FormatTicks(ts.Max),
		})
	}
	return t
}

// countText appends the malformed count when there is one: "12 (1!)".
func countText(st aggregator.Stat) string {
	s := util.FormatThousands(uint64(st.Count))
	if st.Malformed > 0 {
		s += fmt.Sprintf(" (%d!)", st.Malformed)
	}
	return s
}

func formatMean(m float64) string {
	if m < 10000 {
		return strconv.FormatFloat(m, 'f', 1, 64)
	}
	return util.FormatTicks(uint64(m))
}
