package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/util"
)

// RefreshController decides when the trace must be reloaded and installs
// finished loads without disturbing what the user is looking at.
type RefreshController struct {
	path   string
	state  *StateManager
	logger util.LoggerInterface

	mu       sync.Mutex
	lastInfo *util.FileInfo
}

// NewRefreshController creates a new RefreshController instance
func NewRefreshController(path string, state *StateManager, logger util.LoggerInterface) *RefreshController {
	return &RefreshController{
		path:   path,
		state:  state,
		logger: util.OrNop(logger),
	}
}

// Changed reports whether the file on disk differs from the one loaded
// last. A missing file is not a change; the current trace stays on screen.
func (rc *RefreshController) Changed() bool {
	info, err := util.GetFileInfo(rc.path)
	if err != nil {
		rc.logger.Debug("trace file not readable", util.F("error", err))
		return false
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.lastInfo == nil {
		return true
	}
	return info.Size != rc.lastInfo.Size ||
		info.ModTime != rc.lastInfo.ModTime ||
		info.Inode != rc.lastInfo.Inode
}

// ShouldReindex reports whether a file event must start a new load: only
// in follow mode, and only when the file differs from the loaded one.
func (rc *RefreshController) ShouldReindex() bool {
	return rc.state.GetInteractionState().Following && rc.Changed()
}

// HandleResult installs a finished load. Results older than current are
// discarded. It returns whether the displayed trace changed.
func (rc *RefreshController) HandleResult(res LoadResult, current uint64) bool {
	if res.Generation != current {
		if res.Trace != nil {
			res.Trace.Close()
		}
		return false
	}

	if res.Err != nil {
		if errors.Is(res.Err, context.Canceled) {
			return false
		}
		rc.logger.Error("trace load failed", util.F("error", res.Err))
		rc.state.SetLoadingState(false, "")
		rc.state.UpdateInteractionState(func(s *model.InteractionState) {
			s.StatusMessage = fmt.Sprintf("load failed: %v", res.Err)
		})
		return false
	}

	tr := res.Trace
	if prev := rc.state.GetTrace(); prev != nil {
		carryView(prev, tr)
	}
	if prev := rc.state.SwapTrace(tr); prev != nil {
		prev.Close()
	}

	// Compare later changes against the file the index was built from, so
	// bytes appended during the build still count as a change.
	info := tr.Index().Identity().FileInfo
	rc.mu.Lock()
	rc.lastInfo = &info
	rc.mu.Unlock()

	rc.state.SetLoadingState(false, "")
	rc.state.UpdateInteractionState(func(s *model.InteractionState) {
		s.StatusMessage = fmt.Sprintf("%s packets in %s", util.FormatNumber(tr.RowCount()), res.Elapsed.Round(1e6))
		if tr.FromCache() {
			s.StatusMessage += " (cached)"
		}
		if s.Following && tr.RowCount() > 0 {
			s.SelectedRow = tr.RowCount() - 1
			tr.Layout().CenterOn(s.SelectedRow)
		}
	})
	return true
}

// carryView copies viewport, zoom and scroll offsets to a reloaded trace.
func carryView(from, to *trace.Trace) {
	src, dst := from.Layout(), to.Layout()
	dst.SetViewport(src.Viewport())
	dst.SetZoom(src.Zoom())
	dst.SetScroll(src.Scroll())
}
