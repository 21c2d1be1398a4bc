// Package trace opens a trace file and assembles the packet index, decoder,
// lanes, row model and timeline layout over it.
package trace

import (
	"context"
	"fmt"
	"os"

	"github.com/penwyp/go-apitrace/internal/core/decoder"
	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/rows"
	"github.com/penwyp/go-apitrace/internal/core/timeline"
	"github.com/penwyp/go-apitrace/internal/data/cache"
	"github.com/penwyp/go-apitrace/internal/data/index"
	"github.com/penwyp/go-apitrace/internal/util"
)

// Options configures Open.
type Options struct {
	Logger util.LoggerInterface
	// Registry resolves decoders; nil selects decoder.Default().
	Registry *decoder.Registry
	// ForceDecoder, when set, overrides the tracer id of the file.
	ForceDecoder string
	// Cache, when set, stores and reuses built indexes.
	Cache        cache.Cache
	Layout       timeline.Config
	RowCacheSize int
	Progress     func(scanned, total int64)
}

// Trace is an opened trace file. The row API is safe for concurrent use;
// the layout belongs to a single goroutine.
type Trace struct {
	idx       *index.PacketIndex
	dec       decoder.PacketDecoder
	lanes     *timeline.Lanes
	rows      *rows.Model
	layout    *timeline.Layout
	report    *model.LoadReport
	fromCache bool
}

// Open indexes path, reusing a cached index when opts.Cache holds a valid
// one, and assembles the views over it.
func Open(ctx context.Context, path string, opts Options) (*Trace, error) {
	logger := util.OrNop(opts.Logger).WithContext(context.WithValue(ctx, util.TracePathKey, path))

	idx, report, fromCache := openCached(path, opts.Cache, logger)
	if idx == nil {
		var err error
		idx, report, err = index.Open(ctx, path, index.Options{Logger: logger, Progress: opts.Progress})
		if err != nil {
			return nil, err
		}
		if opts.Cache != nil {
			if err := opts.Cache.Set(cache.NewIndexEntry(idx, report.Issues)); err != nil {
				logger.Warn("index cache write failed", util.F("error", err))
			}
		}
	}

	opts.Logger = logger
	t, err := FromIndex(idx, report, opts)
	if err != nil {
		idx.Close()
		return nil, err
	}
	t.fromCache = fromCache
	return t, nil
}

func openCached(path string, c cache.Cache, logger util.LoggerInterface) (*index.PacketIndex, *model.LoadReport, bool) {
	if c == nil {
		return nil, nil, false
	}
	result := c.Get(path)
	if !result.Found {
		logger.Debug("index cache miss", util.F("reason", result.MissReason.String()))
		return nil, nil, false
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, false
	}
	stat, err := file.Stat()
	if err != nil || stat.Size() < result.Entry.FileSize {
		file.Close()
		return nil, nil, false
	}
	// The records cover the file as it was cached, even if it grew since.
	idx, err := index.FromRecords(file, result.Entry.FileSize, result.Entry.FileHeader, result.Entry.Records)
	if err != nil {
		logger.Warn("cached index rejected", util.F("error", err))
		file.Close()
		return nil, nil, false
	}
	idx.Adopt(path, file, result.Entry.Identity())

	report := model.NewLoadReport()
	report.Issues = append(report.Issues, result.Entry.Issues...)
	logger.Debug("index cache hit", util.F("rows", idx.Len()))
	return idx, report, true
}

// FromIndex assembles a Trace over an already built index. It takes
// ownership of idx. Decoder and timestamp problems are appended to report.
func FromIndex(idx *index.PacketIndex, report *model.LoadReport, opts Options) (*Trace, error) {
	logger := util.OrNop(opts.Logger)
	if report == nil {
		report = model.NewLoadReport()
	}
	registry := opts.Registry
	if registry == nil {
		registry = decoder.Default()
	}

	fh := idx.FileHeader()
	tracerID := fh.TracerID
	if opts.ForceDecoder != "" {
		tracerID = opts.ForceDecoder
	}
	dec, err := registry.ResolveAs(tracerID, fh)
	if err != nil {
		report.Add(model.IssueDecoderUnavailable, -1, 0, "%v", err)
		logger.Warn("decoder unavailable", util.F("tracer", tracerID), util.F("error", err))
		dec = nil
	}

	lanes := timeline.BuildLanes(idx)
	for _, row := range lanes.Malformed() {
		rec := idx.Record(row)
		report.Add(model.IssueMalformedTimestamp, row, rec.FileOffset,
			"end time %d precedes begin time %d", rec.Header.EndTime, rec.Header.BeginTime)
	}

	rowModel, err := rows.New(idx, rows.Options{
		Decoder:   dec,
		Flagged:   lanes.IsFlagged,
		CacheSize: opts.RowCacheSize,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create row model: %w", err)
	}

	logger.Info("trace opened",
		util.F("rows", idx.Len()),
		util.F("threads", lanes.Len()),
		util.F("tracer", fh.TracerID),
		util.F("issues", report.Len()))

	return &Trace{
		idx:    idx,
		dec:    dec,
		lanes:  lanes,
		rows:   rowModel,
		layout: timeline.NewLayout(idx, lanes, opts.Layout),
		report: report,
	}, nil
}

// Path returns the trace file path.
func (t *Trace) Path() string { return t.idx.Path() }

// Index exposes the packet index.
func (t *Trace) Index() *index.PacketIndex { return t.idx }

// FileHeader returns the trace file header.
func (t *Trace) FileHeader() model.FileHeader { return t.idx.FileHeader() }

// Decoder returns the resolved decoder, or nil.
func (t *Trace) Decoder() decoder.PacketDecoder { return t.dec }

// Lanes returns the per-thread partition.
func (t *Trace) Lanes() *timeline.Lanes { return t.lanes }

// Rows returns the row model.
func (t *Trace) Rows() *rows.Model { return t.rows }

// Layout returns the timeline layout.
func (t *Trace) Layout() *timeline.Layout { return t.layout }

// Report returns the accumulated load issues.
func (t *Trace) Report() *model.LoadReport { return t.report }

// FromCache reports whether the index was restored from the cache.
func (t *Trace) FromCache() bool { return t.fromCache }

// RowCount returns the number of packets.
func (t *Trace) RowCount() int { return t.rows.RowCount() }

// Header returns the header of row.
func (t *Trace) Header(row int) model.PacketHeader { return t.rows.Header(row) }

// DisplayText returns the decoded text of row.
func (t *Trace) DisplayText(row int) model.DisplayText { return t.rows.DisplayText(row) }

// ThreadIDs lists the threads in lane order.
func (t *Trace) ThreadIDs() []uint32 { return t.lanes.ThreadIDs() }

// NameOf names a packet id with the resolved decoder.
func (t *Trace) NameOf(packetID uint16) string {
	if t.dec == nil {
		return decoder.FallbackName(packetID)
	}
	return t.dec.NameOf(packetID)
}

// VisibleRects sizes the layout to viewport and returns the visible items.
func (t *Trace) VisibleRects(viewport model.Viewport) []model.TimelineItem {
	t.layout.SetViewport(viewport)
	return t.layout.VisibleItems()
}

// HitTest returns the row under p in the current layout.
func (t *Trace) HitTest(p model.Point) (int, bool) { return t.layout.HitTest(p) }

// Close releases the trace file.
func (t *Trace) Close() error { return t.idx.Close() }
