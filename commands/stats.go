package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/data/aggregator"
	"github.com/penwyp/go-apitrace/internal/presentation/formatter"
	"github.com/penwyp/go-apitrace/internal/util"
)

var (
	statsOutput  string
	statsTop     int
	statsBuckets int
)

var statsCmd = &cobra.Command{
	Use:   "stats <trace>",
	Short: "Aggregate packets by call and by thread",
	Long: `Aggregates packet durations per call name and per thread. The summary
output adds file details and the load report; table output prints the call
and thread tables and, with --buckets, a histogram of packet begin times.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "summary",
		"Output format (summary, table, json)")
	statsCmd.Flags().IntVar(&statsTop, "top", 10,
		"Number of calls to list (0 = all)")
	statsCmd.Flags().IntVar(&statsBuckets, "buckets", 0,
		"Number of histogram buckets in table output")
}

func runStats(cmd *cobra.Command, args []string) error {
	tr, err := openTrace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer tr.Close()

	summary := aggregator.NewAggregator(tr.NameOf).Aggregate(tr.Index())
	out := cmd.OutOrStdout()

	switch strings.ToLower(statsOutput) {
	case "summary":
		return formatter.NewSummaryFormatter(statsTop).Format(out, overview(tr, summary))
	case "json":
		return formatter.WriteJSON(out, summary)
	case "table":
		return writeStatsTables(out, tr, summary)
	default:
		return fmt.Errorf("%w: %q", formatter.ErrUnknownFormat, statsOutput)
	}
}

func overview(tr *trace.Trace, summary aggregator.Summary) formatter.Overview {
	return formatter.Overview{
		Path:       tr.Path(),
		FileHeader: tr.FileHeader(),
		Decoder:    decoderName(tr),
		FileSize:   tr.Index().Size(),
		Indexed:    tr.Index().IndexedBytes(),
		Lanes:      tr.Lanes().Len(),
		FromCache:  tr.FromCache(),
		Stats:      summary,
		Report:     tr.Report(),
	}
}

func writeStatsTables(w io.Writer, tr *trace.Trace, summary aggregator.Summary) error {
	if err := formatter.CallTable(summary, statsTop).Render(w); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := formatter.ThreadTable(summary).Render(w); err != nil {
		return err
	}
	if statsBuckets <= 0 || summary.Packets == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return histogramTable(aggregator.Histogram(tr.Index(), summary.Range, statsBuckets)).Render(w)
}

const histogramBarWidth = 30

func histogramTable(buckets []aggregator.Bucket) *formatter.Table {
	peak := 0
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}
	t := &formatter.Table{
		Headers: []string{"Begin", "End", "Packets", ""},
		Align:   []rows.Alignment{rows.AlignRight, rows.AlignRight, rows.AlignRight, rows.AlignLeft},
	}
	for _, b := range buckets {
		share := 0.0
		if peak > 0 {
			share = float64(b.Count) * 100 / float64(peak)
		}
		t.Rows = append(t.Rows, []string{
			util.FormatThousands(b.Begin),
			util.FormatThousands(b.End),
			util.FormatNumber(b.Count),
			util.CreateProgressBar(share, histogramBarWidth),
		})
	}
	return t
}
