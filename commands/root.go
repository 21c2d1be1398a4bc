package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/config"
	"github.com/penwyp/go-apitrace/internal/core/decoder"
	"github.com/penwyp/go-apitrace/internal/core/timeline"
	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/data/cache"
	"github.com/penwyp/go-apitrace/internal/util"
)

var (
	// Logging related
	debug   bool
	logFile string

	// Configuration
	configPath   string
	forceDecoder string
	noCache      bool
	reset        bool

	// Set up by PersistentPreRunE for every subcommand.
	appConfig *config.Config
	logger    util.LoggerInterface
	closeLog  func() error

	rootCmd = &cobra.Command{
		Use:   "go-apitrace",
		Short: "Inspect API call trace files",
		Long: `go-apitrace indexes binary API call traces and shows them as per-thread
timelines, tables and statistics.

Examples:
  go-apitrace dump app.trace                          # Print every packet as a table
  go-apitrace dump app.trace --thread 7 -o csv        # Packets of thread 7 as CSV
  go-apitrace lanes app.trace                         # One line per thread lane
  go-apitrace hit app.trace --thread 7 --time 15      # Packet of thread 7 at tick 15
  go-apitrace stats app.trace --top 5                 # Slowest calls and thread utilization
  go-apitrace info ./traces --deep                    # Probe every trace in a directory
  go-apitrace view app.trace --follow                 # Interactive timeline
  go-apitrace gen out.trace --threads 4 --packets 1000`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode (debug level, log to stderr)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile,
		"Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Log file path (overrides log.file)")
	rootCmd.PersistentFlags().StringVar(&forceDecoder, "decoder", "",
		"Decode packets with this decoder regardless of the tracer id (callrecord, raw)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false,
		"Do not read or write the index cache")
	rootCmd.PersistentFlags().BoolVarP(&reset, "reset", "r", false,
		"Clear the index cache before running")
}

func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if forceDecoder != "" {
		cfg.Decoders.Force = forceDecoder
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	appConfig = cfg

	file := config.ExpandPath(cfg.Log.File)
	if err := ensureDir(filepath.Dir(file)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	l, err := util.NewLogger(util.LoggerConfig{
		Level:          cfg.Log.Level,
		Format:         util.LogFormat(cfg.Log.Format),
		File:           file,
		MaxSizeMB:      cfg.Log.MaxSizeMB,
		DebugToConsole: debug,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l.With(util.F("command", cmd.Name()))
	closeLog = l.Close

	if reset {
		if err := clearCache(config.ExpandPath(cfg.Cache.Dir)); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		logger.Info("index cache cleared")
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if closeLog == nil {
		return nil
	}
	err := closeLog()
	closeLog = nil
	return err
}

// traceOptions builds trace.Options from the loaded configuration.
func traceOptions() trace.Options {
	registry := decoder.NewRegistry()
	registry.Register(decoder.CallRecordID, decoder.CallRecordFactory(appConfig.Decoders.CallRecord.Names))
	registry.Register(decoder.RawID, decoder.RawFactory)

	opts := trace.Options{
		Logger:       logger,
		Registry:     registry,
		ForceDecoder: appConfig.Decoders.Force,
		Layout: timeline.Config{
			LaneHeight: float64(appConfig.View.LaneHeight),
			Margin:     float64(appConfig.View.Margin),
		},
	}
	if appConfig.Cache.On() && !noCache {
		c, err := cache.NewFileCache(config.ExpandPath(appConfig.Cache.Dir), logger)
		if err != nil {
			logger.Warn("index cache disabled", util.F("error", err))
		} else {
			opts.Cache = c
		}
	}
	return opts
}

// openTrace indexes path with the configured options.
func openTrace(ctx context.Context, path string) (*trace.Trace, error) {
	tr, err := trace.Open(ctx, path, traceOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	return tr, nil
}

// decoderName names the decoder in use for tr, or "" when none resolved.
func decoderName(tr *trace.Trace) string {
	if tr.Decoder() == nil {
		return ""
	}
	if appConfig.Decoders.Force != "" {
		return appConfig.Decoders.Force
	}
	return tr.FileHeader().TracerID
}

// Helper functions

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func clearCache(cacheDir string) error {
	c, err := cache.NewFileCache(cacheDir, logger)
	if err != nil {
		return err
	}
	return c.Clear()
}
