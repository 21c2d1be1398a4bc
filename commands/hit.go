package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/presentation/formatter"
	"github.com/penwyp/go-apitrace/internal/presentation/layout"
)

var (
	hitThread  uint32
	hitTime    uint64
	hitNearest bool

	hitX, hitY float64
	hitWidth   int
	hitHeight  int
	hitZoom    float64
	hitScrollX float64
	hitScrollY float64
	hitOutput  string
	hitDetail  bool
)

var hitCmd = &cobra.Command{
	Use:   "hit <trace>",
	Short: "Find the packet at a time or screen position",
	Long: `Finds the packet under a point of the timeline, either by thread and time
(--thread, --time) or by a position in a viewport (--x, --y) laid out with
the given size, zoom and scroll offsets.`,
	Args: cobra.ExactArgs(1),
	RunE: runHit,
}

func init() {
	rootCmd.AddCommand(hitCmd)

	hitCmd.Flags().Uint32Var(&hitThread, "thread", 0, "Thread id")
	hitCmd.Flags().Uint64Var(&hitTime, "time", 0, "Time in ticks")
	hitCmd.Flags().BoolVar(&hitNearest, "nearest", false,
		"Fall back to the closest packet of the thread when none contains the time")

	hitCmd.Flags().Float64Var(&hitX, "x", 0, "Viewport x coordinate")
	hitCmd.Flags().Float64Var(&hitY, "y", 0, "Viewport y coordinate")
	hitCmd.Flags().IntVar(&hitWidth, "width", layout.DefaultWidth, "Viewport width")
	hitCmd.Flags().IntVar(&hitHeight, "height", layout.DefaultHeight, "Viewport height")
	hitCmd.Flags().Float64Var(&hitZoom, "zoom", 1, "Zoom factor (1 fits the trace)")
	hitCmd.Flags().Float64Var(&hitScrollX, "scroll-x", 0, "Horizontal scroll offset")
	hitCmd.Flags().Float64Var(&hitScrollY, "scroll-y", 0, "Vertical scroll offset")

	hitCmd.Flags().StringVarP(&hitOutput, "output", "o", "table", "Output format (table, json, csv)")
	hitCmd.Flags().BoolVar(&hitDetail, "detail", false, "Print the decoded packet text")
}

func runHit(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	byTime := flags.Changed("thread") || flags.Changed("time")
	byPoint := flags.Changed("x") || flags.Changed("y")
	switch {
	case byTime && byPoint:
		return errors.New("use either --thread/--time or --x/--y, not both")
	case byTime && !(flags.Changed("thread") && flags.Changed("time")):
		return errors.New("--thread and --time must be given together")
	case !byTime && !byPoint:
		return errors.New("either --thread and --time or --x and --y are required")
	}

	tr, err := openTrace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer tr.Close()

	var (
		row   int
		ok    bool
		where string
	)
	if byTime {
		row, ok = tr.Layout().HitTestLane(hitThread, hitTime)
		if !ok && hitNearest {
			row, ok = tr.Layout().Nearest(hitThread, hitTime)
		}
		where = fmt.Sprintf("thread %d, time %d", hitThread, hitTime)
	} else {
		row, ok = hitPoint(tr)
		where = fmt.Sprintf("x=%g, y=%g", hitX, hitY)
	}
	if !ok {
		return fmt.Errorf("no packet at %s", where)
	}
	logger.Debug(fmt.Sprintf("hit row %d at %s", row, where))

	f, err := formatter.NewRowFormatter(hitOutput)
	if err != nil {
		return err
	}
	if jf, isJSON := f.(*formatter.JSONFormatter); isJSON {
		f = jf.WithDetail(hitDetail)
	}
	out := cmd.OutOrStdout()
	if err := f.FormatRows(out, formatter.RowSet{Source: tr.Rows(), Rows: []int{row}, Columns: tr.Rows().Columns()}); err != nil {
		return err
	}
	if hitDetail && strings.EqualFold(hitOutput, "table") {
		_, err = fmt.Fprintf(out, "\n%s\n", tr.DisplayText(row).Multiline)
	}
	return err
}

// hitPoint lays the trace out in the requested viewport and hit tests the
// point in screen coordinates.
func hitPoint(tr *trace.Trace) (int, bool) {
	l := tr.Layout()
	l.SetViewport(model.Viewport{Width: float64(hitWidth), Height: float64(hitHeight)})
	l.SetZoom(hitZoom)
	l.SetScroll(hitScrollX, hitScrollY)
	return tr.HitTest(model.Point{X: hitX, Y: hitY})
}
