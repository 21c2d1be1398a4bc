package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/application/viewer"
	"github.com/penwyp/go-apitrace/internal/config"
)

var (
	viewFollow      bool
	viewLayout      string
	viewNoColor     bool
	viewRefreshRate float64
	viewDebounce    time.Duration
	viewDetailLines int
)

var viewCmd = &cobra.Command{
	Use:   "view <trace>",
	Short: "Browse a trace as an interactive timeline",
	Long: `Shows one lane per thread with every packet drawn across its time span.
The trace is indexed in the background. With --follow (or F inside the
viewer) the file is reindexed whenever it changes and the newest packet
stays selected.

Press h inside the viewer for the key bindings.`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().BoolVarP(&viewFollow, "follow", "f", false,
		"Select the newest packet after every reload")
	viewCmd.Flags().StringVar(&viewLayout, "layout", "full",
		"Screen layout (full, minimal)")
	viewCmd.Flags().BoolVar(&viewNoColor, "no-color", false,
		"Draw with glyphs instead of colors")
	viewCmd.Flags().Float64Var(&viewRefreshRate, "refresh-per-second", 8,
		"Display refresh rate (0.5-30 Hz)")
	viewCmd.Flags().DurationVar(&viewDebounce, "debounce", 250*time.Millisecond,
		"Quiet period after a file change before reindexing")
	viewCmd.Flags().IntVar(&viewDetailLines, "detail-lines", 6,
		"Height of the detail pane")
}

func runView(cmd *cobra.Command, args []string) error {
	if viewRefreshRate < 0.5 || viewRefreshRate > 30 {
		return errors.New("refresh rate must be between 0.5 and 30 Hz")
	}
	layoutStyle, err := parseLayout(viewLayout)
	if err != nil {
		return err
	}

	cfg := &viewer.Config{
		TracePath:     config.ExpandPath(args[0]),
		Trace:         traceOptions(),
		ZoomStep:      appConfig.View.ZoomStep,
		ScrollStep:    appConfig.View.ScrollStep,
		LayoutStyle:   layoutStyle,
		DetailLines:   viewDetailLines,
		NoColor:       viewNoColor,
		Follow:        viewFollow,
		Debounce:      viewDebounce,
		UIRefreshRate: viewRefreshRate,
	}

	orchestrator, err := viewer.NewOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	return orchestrator.Run(cmd.Context())
}

func parseLayout(s string) (int, error) {
	switch strings.ToLower(s) {
	case "full":
		return 0, nil
	case "minimal":
		return 1, nil
	}
	return 0, fmt.Errorf("unknown layout %q (full, minimal)", s)
}
