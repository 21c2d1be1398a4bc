package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-apitrace/internal/util"
)

// SummaryFormatter prints a plain-text report about one trace.
type SummaryFormatter struct {
	top int
}

// NewSummaryFormatter creates a formatter listing the top calls by total
// duration.
func NewSummaryFormatter(top int) *SummaryFormatter {
	return &SummaryFormatter{top: top}
}

func (f *SummaryFormatter) Format(w io.Writer, o Overview) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString(rule + "\n")
	b.WriteString("Trace Summary Report\n")
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "File:      %s\n", o.Path)
	fmt.Fprintf(&b, "Tracer:    %s (version %d)\n", o.FileHeader.TracerID, o.FileHeader.TracerVersion)
	fmt.Fprintf(&b, "Format:    v%d, %d-byte words, %s\n", o.FileHeader.FormatVersion, o.FileHeader.WordSize, o.FileHeader.ByteOrder)
	decoderName := o.Decoder
	if decoderName == "" {
		decoderName = "none"
	}
	fmt.Fprintf(&b, "Decoder:   %s\n", decoderName)
	size := util.FormatBytes(o.FileSize)
	if o.Indexed < o.FileSize {
		size += fmt.Sprintf(" (%s indexed)", util.FormatBytes(o.Indexed))
	}
	fmt.Fprintf(&b, "Size:      %s\n", size)
	if o.FromCache {
		b.WriteString("Index:     loaded from cache\n")
	}
	b.WriteString("\n")

	if o.Stats.Packets == 0 {
		b.WriteString("No packets in trace\n\n")
	} else {
		fmt.Fprintf(&b, "Packets:   %s\n", util.FormatThousands(uint64(o.Stats.Packets)))
		fmt.Fprintf(&b, "Threads:   %d\n", o.Lanes)
		fmt.Fprintf(&b, "Time:      %d .. %d (%s ticks)\n", o.Stats.Range.Begin, o.Stats.Range.End, util.FormatTicks(o.Stats.Range.Duration()))
		b.WriteString("\n")

		calls := o.Stats.ByName
		if f.top > 0 && len(calls) > f.top {
			calls = calls[:f.top]
		}
		b.WriteString("Top Calls:\n")
		b.WriteString(strings.Repeat("-", 60) + "\n")
		for _, st := range calls {
			fmt.Fprintf(&b, "  %-28s %8s calls %10s ticks\n",
				util.TruncateToWidth(st.Key, 28), util.FormatThousands(uint64(st.Count)), util.FormatTicks(st.Total))
		}
		b.WriteString("\n")
	}

	b.WriteString("Load Report:\n")
	if o.Report == nil || o.Report.Len() == 0 {
		b.WriteString("  no issues\n")
	} else {
		fmt.Fprintf(&b, "  %s\n", o.Report.Summary())
		for _, issue := range o.Report.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}
	b.WriteString("\n" + rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
