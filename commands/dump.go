package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/presentation/formatter"
	"github.com/penwyp/go-apitrace/internal/util"
)

var (
	dumpOutput   string
	dumpFrom     int
	dumpCount    int
	dumpThreads  string
	dumpSearch   string
	dumpColumns  string
	dumpDetail   bool
	dumpMaxWidth int
	dumpNoReport bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <trace>",
	Short: "Print the packets of a trace",
	Long: `Prints one line per packet in file order. Rows can be limited to a range,
to some threads, or to packets matching a search query. The load report is
appended to table output and written to stderr for json and csv.

Search queries match call names and summaries case-insensitively;
"tid:N" matches thread N and "#N" matches global index N.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "table",
		"Output format (table, json, csv)")
	dumpCmd.Flags().IntVar(&dumpFrom, "from", 0,
		"First row to consider")
	dumpCmd.Flags().IntVarP(&dumpCount, "count", "n", 0,
		"Maximum number of rows to print (0 = all)")
	dumpCmd.Flags().StringVar(&dumpThreads, "thread", "",
		"Comma-separated thread ids to include")
	dumpCmd.Flags().StringVarP(&dumpSearch, "search", "s", "",
		"Only rows matching this query")
	dumpCmd.Flags().StringVar(&dumpColumns, "columns", "",
		"Comma-separated columns (index, thread, call, begin, end, duration, size, summary)")
	dumpCmd.Flags().BoolVar(&dumpDetail, "detail", false,
		"Include the multi-line decoded text in json output")
	dumpCmd.Flags().IntVar(&dumpMaxWidth, "max-width", formatter.DefaultMaxCellWidth,
		"Maximum table cell width (0 = unlimited)")
	dumpCmd.Flags().BoolVar(&dumpNoReport, "no-report", false,
		"Do not print the load report")
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := newDumpFormatter()
	if err != nil {
		return err
	}
	threads, err := parseThreads(dumpThreads)
	if err != nil {
		return err
	}
	if dumpFrom < 0 || dumpCount < 0 {
		return errors.New("--from and --count must not be negative")
	}

	tr, err := openTrace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer tr.Close()

	cols := tr.Rows().Columns()
	if dumpColumns != "" {
		if cols, err = parseColumns(dumpColumns); err != nil {
			return err
		}
	}

	set := formatter.RowSet{
		Source:  tr.Rows(),
		Rows:    selectRows(tr, dumpFrom, dumpCount, threads, dumpSearch),
		Columns: cols,
	}
	logger.Debug("dumping rows", util.F("rows", len(set.Rows)))
	if err := f.FormatRows(cmd.OutOrStdout(), set); err != nil {
		return err
	}

	if dumpNoReport {
		return nil
	}
	w := cmd.ErrOrStderr()
	if strings.EqualFold(dumpOutput, "table") {
		w = cmd.OutOrStdout()
		fmt.Fprintln(w)
	}
	return writeReport(w, tr.Report())
}

func newDumpFormatter() (formatter.RowFormatter, error) {
	f, err := formatter.NewRowFormatter(dumpOutput)
	if err != nil {
		return nil, err
	}
	switch f := f.(type) {
	case *formatter.JSONFormatter:
		return f.WithDetail(dumpDetail), nil
	case *formatter.TableFormatter:
		return f.WithMaxCellWidth(dumpMaxWidth), nil
	}
	return f, nil
}

// selectRows returns up to count rows (all when count is 0) at or after
// from that belong to threads (all when empty) and match query (all when
// empty).
func selectRows(tr *trace.Trace, from, count int, threads map[uint32]bool, query string) []int {
	var selected []int
	for row := from; row < tr.RowCount(); row++ {
		if count > 0 && len(selected) == count {
			break
		}
		if len(threads) > 0 && !threads[tr.Header(row).ThreadID] {
			continue
		}
		if query != "" && !tr.Rows().IsSearchMatch(row, query) {
			continue
		}
		selected = append(selected, row)
	}
	return selected
}

func parseThreads(s string) (map[uint32]bool, error) {
	threads := make(map[uint32]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tid, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid thread id %q", part)
		}
		threads[uint32(tid)] = true
	}
	return threads, nil
}

func parseColumns(s string) ([]rows.Column, error) {
	var cols []rows.Column
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		col, err := rows.ParseColumn(part)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, errors.New("no columns selected")
	}
	return cols, nil
}

func writeReport(w io.Writer, r *model.LoadReport) error {
	if _, err := fmt.Fprintf(w, "Load report: %s\n", r.Summary()); err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	for _, issue := range r.Issues {
		if _, err := fmt.Fprintf(w, "  - %s\n", issue); err != nil {
			return err
		}
	}
	return nil
}
