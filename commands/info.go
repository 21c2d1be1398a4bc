package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/config"
	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/data/cache"
	"github.com/penwyp/go-apitrace/internal/data/parser"
	"github.com/penwyp/go-apitrace/internal/data/scanner"
	"github.com/penwyp/go-apitrace/internal/presentation/formatter"
	"github.com/penwyp/go-apitrace/internal/util"
)

var (
	infoDeep        bool
	infoExt         string
	infoConcurrency int
	infoOutput      string
	infoCache       bool
)

var infoCmd = &cobra.Command{
	Use:   "info [dir]",
	Short: "Probe the trace files in a directory",
	Long: `Finds trace files below a directory (default: the current one) and reads
their headers concurrently. With --deep every file is indexed to count its
packets and load issues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&infoDeep, "deep", false,
		"Index every file to count packets and issues")
	infoCmd.Flags().StringVar(&infoExt, "ext", scanner.DefaultExtension,
		"Trace file extension")
	infoCmd.Flags().IntVarP(&infoConcurrency, "concurrency", "j", runtime.NumCPU(),
		"Number of files probed at once")
	infoCmd.Flags().StringVarP(&infoOutput, "output", "o", "table",
		"Output format (table, json)")
	infoCmd.Flags().BoolVar(&infoCache, "cache", false,
		"Also report the index cache usage")
}

func runInfo(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	files, err := scanner.NewFileScanner(dir, logger).WithExtension(infoExt).Scan()
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	probes, err := parser.NewParser(infoConcurrency, logger).Deep(infoDeep).ProbeFiles(cmd.Context(), files)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(infoOutput) {
	case "json":
		type probeJSON struct {
			parser.Probe
			Error string `json:"error,omitempty"`
		}
		list := make([]probeJSON, len(probes))
		for i, p := range probes {
			list[i] = probeJSON{Probe: p, Error: p.ErrorText()}
		}
		return formatter.WriteJSON(out, list)
	case "table":
	default:
		return fmt.Errorf("%w: %q", formatter.ErrUnknownFormat, infoOutput)
	}

	if len(probes) == 0 {
		fmt.Fprintf(out, "No %s files found in %s\n", infoExt, dir)
	} else if err := probeTable(probes).Render(out); err != nil {
		return err
	}

	if infoCache {
		c, err := cache.NewFileCache(config.ExpandPath(appConfig.Cache.Dir), logger)
		if err != nil {
			return err
		}
		_, entries := c.GetCacheStats()
		fmt.Fprintf(out, "\nIndex cache: %s (%d entries)\n", config.ExpandPath(appConfig.Cache.Dir), entries)
	}
	return nil
}

func probeTable(probes []parser.Probe) *formatter.Table {
	t := &formatter.Table{
		Headers: []string{"File", "Size", "Tracer", "Format", "Packets", "Status"},
		Align: []rows.Alignment{
			rows.AlignLeft, rows.AlignRight, rows.AlignLeft, rows.AlignLeft, rows.AlignRight, rows.AlignLeft,
		},
		MaxWidth: formatter.DefaultMaxCellWidth,
	}
	for _, p := range probes {
		row := []string{p.File, util.FormatBytes(p.Size), "", "", "", ""}
		if p.Error != nil {
			row[5] = "error: " + p.ErrorText()
			t.Rows = append(t.Rows, row)
			continue
		}
		fh := p.FileHeader
		row[2] = fmt.Sprintf("%s v%d", fh.TracerID, fh.TracerVersion)
		row[3] = fmt.Sprintf("v%d %s", fh.FormatVersion, fh.ByteOrder)
		row[5] = "ok"
		if p.Issues != nil {
			row[4] = util.FormatNumber(p.Packets)
			row[5] = p.Issues.Summary()
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
