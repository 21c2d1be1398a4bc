package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/presentation/display"
	"github.com/penwyp/go-apitrace/internal/presentation/interaction"
	"github.com/penwyp/go-apitrace/internal/presentation/layout"
	"github.com/penwyp/go-apitrace/internal/util"
)

// Orchestrator coordinates all components of the view command
type Orchestrator struct {
	config *Config
	logger util.LoggerInterface

	// Core components
	loader       *Loader
	refreshCtrl  *RefreshController
	stateManager *StateManager
	controller   *Controller

	// UI components
	display *display.TerminalDisplay
	sizer   *layout.Sizer
	input   io.Reader

	// Monitoring
	watcher *FileWatcher

	reloads chan bool
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithInput reads keys from r instead of the terminal on stdin.
func WithInput(r io.Reader) Option {
	return func(o *Orchestrator) { o.input = r }
}

// WithOutput renders frames to w, measuring the terminal behind it when it
// is one.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.display = display.NewTerminalDisplay(w, o.displayConfig())
		fd := -1
		if f, ok := w.(*os.File); ok {
			fd = int(f.Fd())
		}
		o.sizer = layout.NewSizer(fd, o.logger)
	}
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(config *Config, logger util.LoggerInterface, opts ...Option) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = util.OrNop(logger)
	config.Trace.Logger = logger

	stateManager := NewStateManager()
	stateManager.UpdateInteractionState(func(s *model.InteractionState) {
		s.Following = config.Follow
		s.LayoutStyle = config.LayoutStyle
	})

	o := &Orchestrator{
		config:       config,
		logger:       logger,
		stateManager: stateManager,
		refreshCtrl:  NewRefreshController(config.TracePath, stateManager, logger),
		sizer:        layout.StdoutSizer(logger),
		reloads:      make(chan bool, 1),
	}
	o.display = display.NewTerminalDisplay(os.Stdout, o.displayConfig())
	for _, opt := range opts {
		opt(o)
	}

	o.loader = NewLoader(config.TracePath, config.Trace, stateManager.SetLoadingProgress)
	o.controller = NewController(config, stateManager, o.display, o.requestReload)
	return o, nil
}

func (o *Orchestrator) displayConfig() *display.DisplayConfig {
	styles := display.DefaultStyles()
	if o.config.NoColor {
		styles = display.PlainStyles()
	}
	return &display.DisplayConfig{
		Styles:      styles,
		DetailLines: o.config.DetailLines,
	}
}

// State exposes the viewer state.
func (o *Orchestrator) State() *StateManager {
	return o.stateManager
}

// Run shows the viewer until the user quits, ctx is done or a termination
// signal arrives.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("starting trace viewer", util.F("path", o.config.TracePath))
	defer o.Close()

	keyboard, err := o.openKeyboard()
	if err != nil {
		return fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	defer keyboard.Close()

	watcher, err := NewFileWatcher(o.config.TracePath, o.config.Debounce, o.logger)
	if err != nil {
		o.logger.Warn("file watching disabled", util.F("error", err))
	} else {
		o.watcher = watcher
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		return o.loop(ctx, keyboard)
	}, func(error) {
		cancel()
	})
	if o.watcher != nil {
		g.Add(func() error {
			return o.watcher.Run(ctx)
		}, func(error) {
			o.watcher.Close()
		})
	}

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		o.logger.Info("received signal, shutting down", util.F("signal", sigErr.Signal.String()))
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (o *Orchestrator) openKeyboard() (*interaction.KeyboardReader, error) {
	if o.input != nil {
		return interaction.NewReaderFrom(o.input), nil
	}
	return interaction.NewKeyboardReader()
}

// loop is the UI actor: it owns the display and the layout of the
// displayed trace.
func (o *Orchestrator) loop(ctx context.Context, keyboard *interaction.KeyboardReader) error {
	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	o.startLoad(ctx, false, "Indexing trace...")
	o.updateDisplay()

	uiTicker := time.NewTicker(time.Duration(float64(time.Second) / o.config.UIRefreshRate))
	defer uiTicker.Stop()

	var fileEvents <-chan model.FileEvent
	if o.watcher != nil {
		fileEvents = o.watcher.Events()
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("shutting down trace viewer")
			return ctx.Err()

		case <-uiTicker.C:
			o.updateDisplay()

		case res := <-o.loader.Results():
			o.refreshCtrl.HandleResult(res, o.loader.Generation())
			o.updateDisplay()

		case event := <-fileEvents:
			o.handleFileChange(ctx, event)

		case rebuild := <-o.reloads:
			if rebuild {
				o.startLoad(ctx, true, "Rebuilding index...")
			} else {
				o.reindexIfChanged(ctx)
			}
			o.updateDisplay()

		case keyEvent, ok := <-keyboard.Events():
			if !ok {
				return nil
			}
			width, height := o.sizer.Size()
			if o.controller.HandleKey(keyEvent, width, height) {
				return nil
			}
			o.updateDisplay()
		}
	}
}

// requestReload is called by the controller on the UI goroutine; the
// load itself is started by the loop.
func (o *Orchestrator) requestReload(rebuild bool) {
	select {
	case o.reloads <- rebuild:
	default:
	}
}

func (o *Orchestrator) startLoad(ctx context.Context, rebuild bool, message string) {
	if rebuild && o.config.Trace.Cache != nil {
		if err := o.config.Trace.Cache.Delete(o.config.TracePath); err != nil {
			o.logger.Warn("failed to drop cached index", util.F("error", err))
		}
	}
	o.stateManager.SetLoadingState(true, message)
	gen := o.loader.Start(ctx)
	o.logger.Debug("load started", util.F("generation", gen), util.F("rebuild", rebuild))
}

// handleFileChange reindexes on file events in follow mode only; otherwise
// the loaded trace stays as it is until follow is switched on.
func (o *Orchestrator) handleFileChange(ctx context.Context, event model.FileEvent) {
	if !o.refreshCtrl.ShouldReindex() {
		o.logger.Debug("trace file event ignored", util.F("op", event.Operation))
		return
	}
	o.logger.Info("trace file changed", util.F("op", event.Operation))
	o.startLoad(ctx, false, "Trace changed, reindexing...")
}

func (o *Orchestrator) reindexIfChanged(ctx context.Context) {
	if o.refreshCtrl.Changed() {
		o.startLoad(ctx, false, "Trace changed, reindexing...")
	}
}

// updateDisplay renders the current state to the terminal
func (o *Orchestrator) updateDisplay() {
	width, height := o.sizer.Size()
	o.controller.SyncViewport(width, height)

	var view display.View
	if tr := o.stateManager.GetTrace(); tr != nil {
		view = tr
	}
	if err := o.display.RenderWithState(view, o.stateManager.DisplayState(), width, height); err != nil {
		o.logger.Debug("render failed", util.F("error", err))
	}
}

// Close releases the loader, the watcher and the displayed trace.
func (o *Orchestrator) Close() error {
	err := o.loader.Close()
	if o.watcher != nil {
		o.watcher.Close()
	}
	if tr := o.stateManager.SwapTrace(nil); tr != nil {
		if cerr := tr.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
