package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/presentation/formatter"
	"github.com/penwyp/go-apitrace/internal/util"
)

var lanesOutput string

var lanesCmd = &cobra.Command{
	Use:   "lanes <trace>",
	Short: "Summarize the per-thread lanes of a trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runLanes,
}

func init() {
	rootCmd.AddCommand(lanesCmd)

	lanesCmd.Flags().StringVarP(&lanesOutput, "output", "o", "table",
		"Output format (table, json)")
}

// laneSummary describes one thread lane.
type laneSummary struct {
	Lane     int    `json:"lane"`
	ThreadID uint32 `json:"threadId"`
	Packets  int    `json:"packets"`
	Flagged  int    `json:"flagged"`
	Begin    uint64 `json:"begin"`
	End      uint64 `json:"end"`
	Busy     uint64 `json:"busy"`
}

func runLanes(cmd *cobra.Command, args []string) error {
	tr, err := openTrace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer tr.Close()

	summaries := summarizeLanes(tr)
	switch strings.ToLower(lanesOutput) {
	case "json":
		return formatter.WriteJSON(cmd.OutOrStdout(), summaries)
	case "table":
	default:
		return fmt.Errorf("%w: %q", formatter.ErrUnknownFormat, lanesOutput)
	}

	t := &formatter.Table{
		Headers: []string{"Lane", "Thread", "Packets", "Flagged", "Begin", "End", "Busy"},
		Align: []rows.Alignment{
			rows.AlignRight, rows.AlignRight, rows.AlignRight, rows.AlignRight,
			rows.AlignRight, rows.AlignRight, rows.AlignRight,
		},
	}
	total := 0
	for _, s := range summaries {
		t.Rows = append(t.Rows, []string{
			fmt.Sprint(s.Lane),
			fmt.Sprint(s.ThreadID),
			util.FormatNumber(s.Packets),
			fmt.Sprint(s.Flagged),
			util.FormatThousands(s.Begin),
			util.FormatThousands(s.End),
			util.FormatTicks(s.Busy),
		})
		total += s.Packets
	}
	t.Footer = []string{"", "Total", util.FormatNumber(total), "", "", "", ""}
	return t.Render(cmd.OutOrStdout())
}

// summarizeLanes walks every lane once. Lanes are ordered by begin time,
// so a lane starts at its first row; End covers well-formed packets only.
func summarizeLanes(tr *trace.Trace) []laneSummary {
	lanes := tr.Lanes()
	summaries := make([]laneSummary, 0, lanes.Len())
	for i, lane := range lanes.Lanes() {
		s := laneSummary{Lane: i, ThreadID: lane.ThreadID, Packets: len(lane.Rows)}
		if len(lane.Rows) > 0 {
			s.Begin = tr.Header(lane.Rows[0]).BeginTime
		}
		for _, row := range lane.Rows {
			if lanes.IsFlagged(row) {
				s.Flagged++
				continue
			}
			h := tr.Header(row)
			s.End = max(s.End, h.EndTime)
			s.Busy += h.Duration()
		}
		s.End = max(s.End, s.Begin)
		summaries = append(summaries, s)
	}
	return summaries
}
