package viewer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/util"
)

// LoadResult is the outcome of one background index build.
type LoadResult struct {
	Trace      *trace.Trace
	Err        error
	Generation uint64
	Elapsed    time.Duration
}

// Loader builds trace indexes off the UI goroutine. Starting a load
// cancels the one in flight; only the newest generation is delivered.
type Loader struct {
	path     string
	opts     trace.Options
	logger   util.LoggerInterface
	progress func(percent float64)

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	group      *errgroup.Group
	results    chan LoadResult
}

// NewLoader creates a loader for path. progress, when set, receives the
// build progress in percent from the worker goroutine.
func NewLoader(path string, opts trace.Options, progress func(percent float64)) *Loader {
	return &Loader{
		path:     path,
		opts:     opts,
		logger:   util.OrNop(opts.Logger),
		progress: progress,
		group:    &errgroup.Group{},
		results:  make(chan LoadResult, 1),
	}
}

// Results delivers finished loads.
func (l *Loader) Results() <-chan LoadResult {
	return l.results
}

// Generation returns the generation of the newest load started.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Start begins a new load under ctx, cancelling any load in flight, and
// returns its generation.
func (l *Loader) Start(ctx context.Context) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.generation++
	gen := l.generation

	opts := l.opts
	if l.progress != nil {
		opts.Progress = func(scanned, total int64) {
			if total > 0 && l.Generation() == gen {
				l.progress(float64(scanned) * 100 / float64(total))
			}
		}
	}

	l.group.Go(func() error {
		start := time.Now()
		tr, err := trace.Open(loadCtx, l.path, opts)
		res := LoadResult{Trace: tr, Err: err, Generation: gen, Elapsed: time.Since(start)}
		if err != nil {
			l.logger.Debug("trace load failed", util.F("generation", gen), util.F("error", err))
		} else {
			l.logger.Info("trace loaded",
				util.F("generation", gen),
				util.F("packets", tr.RowCount()),
				util.F("from_cache", tr.FromCache()),
				util.F("elapsed", res.Elapsed.String()))
		}
		l.deliver(loadCtx, res)
		return nil
	})
	return gen
}

// deliver hands res to the consumer unless it is stale or the load was
// cancelled; dropped traces are closed.
func (l *Loader) deliver(ctx context.Context, res LoadResult) {
	for {
		if res.Generation != l.Generation() || ctx.Err() != nil {
			if res.Trace != nil {
				res.Trace.Close()
			}
			return
		}
		select {
		case l.results <- res:
			return
		case <-ctx.Done():
		}
	}
}

// Close cancels the load in flight, waits for the worker to exit and
// closes any trace left undelivered.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
	err := l.group.Wait()
	for {
		select {
		case res := <-l.results:
			if res.Trace != nil {
				res.Trace.Close()
			}
		default:
			return err
		}
	}
}
