package viewer

import (
	"fmt"
	"sort"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/presentation/display"
	"github.com/penwyp/go-apitrace/internal/presentation/interaction"
)

// Controller applies key events to the viewer state and the layout of the
// displayed trace. It must only be used from the UI goroutine.
type Controller struct {
	cfg     *Config
	state   *StateManager
	display *display.TerminalDisplay
	// reload starts a new load; rebuild discards the cached index first.
	reload func(rebuild bool)
}

// NewController creates a new Controller instance
func NewController(cfg *Config, state *StateManager, disp *display.TerminalDisplay, reload func(rebuild bool)) *Controller {
	return &Controller{cfg: cfg, state: state, display: disp, reload: reload}
}

// SyncViewport sizes the layout of the displayed trace to the timeline
// region of a width x height screen.
func (c *Controller) SyncViewport(width, height int) {
	tr := c.state.GetTrace()
	if tr == nil {
		return
	}
	region := c.display.Arrange(width, height, c.state.GetInteractionState()).Timeline
	tr.Layout().SetViewport(model.Viewport{Width: float64(region.Width), Height: float64(region.Height)})
}

// HandleKey applies ev and reports whether the viewer should exit.
func (c *Controller) HandleKey(ev interaction.KeyEvent, width, height int) bool {
	state := c.state.GetInteractionState()

	if state.ConfirmDialog != nil {
		c.handleDialog(state.ConfirmDialog, ev)
		return false
	}
	if state.SearchActive {
		c.handleSearchInput(state, ev, width, height)
		return false
	}

	c.SyncViewport(width, height)
	c.state.UpdateInteractionState(func(s *model.InteractionState) { s.StatusMessage = "" })

	action := interaction.Lookup(ev)
	if state.ShowHelp && action != interaction.ActionQuit && action != interaction.ActionHelp {
		c.state.UpdateInteractionState(func(s *model.InteractionState) { s.ShowHelp = false })
		return false
	}
	return c.apply(action, state, width, height)
}

func (c *Controller) handleDialog(dialog *model.ConfirmDialog, ev interaction.KeyEvent) {
	switch {
	case ev.Type == interaction.KeyChar && (ev.Key == 'y' || ev.Key == 'Y'):
		if dialog.OnConfirm != nil {
			dialog.OnConfirm()
		}
	case ev.Type == interaction.KeyEscape,
		ev.Type == interaction.KeyChar && (ev.Key == 'n' || ev.Key == 'N' || ev.Key == 3):
		if dialog.OnCancel != nil {
			dialog.OnCancel()
		}
	}
}

func (c *Controller) handleSearchInput(state model.InteractionState, ev interaction.KeyEvent, width, height int) {
	query, result := interaction.EditLine(state.SearchQuery, ev)
	switch result {
	case interaction.EditContinue:
		c.state.UpdateInteractionState(func(s *model.InteractionState) { s.SearchQuery = query })
	case interaction.EditCancel:
		c.state.UpdateInteractionState(func(s *model.InteractionState) {
			s.SearchActive = false
			s.SearchQuery = ""
		})
	case interaction.EditCommit:
		c.state.UpdateInteractionState(func(s *model.InteractionState) {
			s.SearchActive = false
			s.SearchQuery = query
		})
		if query == "" {
			return
		}
		c.SyncViewport(width, height)
		c.findMatch(query, state.SelectedRow, true)
	}
}

func (c *Controller) apply(action interaction.Action, state model.InteractionState, width, height int) bool {
	switch action {
	case interaction.ActionQuit:
		return true
	case interaction.ActionHelp:
		c.state.UpdateInteractionState(func(s *model.InteractionState) { s.ShowHelp = !s.ShowHelp })
		return false
	case interaction.ActionToggleLayout:
		c.state.UpdateInteractionState(func(s *model.InteractionState) { s.LayoutStyle = (s.LayoutStyle + 1) % 2 })
		return false
	case interaction.ActionCancel:
		c.cancel(state)
		return false
	case interaction.ActionReload:
		c.confirmRebuild()
		return false
	case interaction.ActionSearch:
		c.state.UpdateInteractionState(func(s *model.InteractionState) {
			s.SearchActive = true
			s.SearchQuery = ""
		})
		return false
	}

	tr := c.state.GetTrace()
	if tr == nil {
		return false
	}
	l := tr.Layout()
	vp := l.Viewport()

	switch action {
	case interaction.ActionZoomIn:
		l.ZoomAt(c.zoomAnchor(tr, state.SelectedRow), c.cfg.ZoomStep)
	case interaction.ActionZoomOut:
		l.ZoomAt(c.zoomAnchor(tr, state.SelectedRow), 1/c.cfg.ZoomStep)
	case interaction.ActionScrollLeft:
		l.ScrollBy(-c.cfg.ScrollStep*vp.Width, 0)
	case interaction.ActionScrollRight:
		l.ScrollBy(c.cfg.ScrollStep*vp.Width, 0)
	case interaction.ActionPageLeft:
		l.ScrollBy(-vp.Width, 0)
	case interaction.ActionPageRight:
		l.ScrollBy(vp.Width, 0)
	case interaction.ActionLaneUp:
		l.ScrollBy(0, -l.Config().LaneHeight)
	case interaction.ActionLaneDown:
		l.ScrollBy(0, l.Config().LaneHeight)
	case interaction.ActionFit:
		l.FitAll()
	case interaction.ActionCenter:
		l.CenterOn(state.SelectedRow)
	case interaction.ActionNextPacket, interaction.ActionPrevPacket:
		if row, ok := stepInLane(tr, state.SelectedRow, action == interaction.ActionNextPacket); ok {
			c.selectRow(tr, row)
		}
	case interaction.ActionFirstPacket:
		if tr.RowCount() > 0 {
			c.selectRow(tr, 0)
		}
	case interaction.ActionLastPacket:
		if tr.RowCount() > 0 {
			c.selectRow(tr, tr.RowCount()-1)
		}
	case interaction.ActionNextMatch, interaction.ActionPrevMatch:
		if state.SearchQuery == "" {
			c.setStatus("no search; press / to search")
			break
		}
		c.findMatch(state.SearchQuery, state.SelectedRow, action == interaction.ActionNextMatch)
	case interaction.ActionToggleDetail:
		if state.SelectedRow < 0 {
			c.setStatus("no packet selected")
			break
		}
		c.state.UpdateInteractionState(func(s *model.InteractionState) { s.ShowDetail = !s.ShowDetail })
		// The detail pane changes the timeline height.
		c.SyncViewport(width, height)
	case interaction.ActionToggleFollow:
		following := !state.Following
		c.state.UpdateInteractionState(func(s *model.InteractionState) { s.Following = following })
		if following && tr.RowCount() > 0 {
			c.selectRow(tr, tr.RowCount()-1)
		}
		// Changes made while not following were ignored; catch up now.
		if following && c.reload != nil {
			c.reload(false)
		}
	}
	return false
}

func (c *Controller) cancel(state model.InteractionState) {
	c.state.UpdateInteractionState(func(s *model.InteractionState) {
		switch {
		case state.ShowHelp:
			s.ShowHelp = false
		case state.SearchQuery != "":
			s.SearchQuery = ""
		case state.ShowDetail:
			s.ShowDetail = false
		default:
			s.SelectedRow = -1
		}
	})
}

func (c *Controller) confirmRebuild() {
	dismiss := func() {
		c.state.UpdateInteractionState(func(s *model.InteractionState) { s.ConfirmDialog = nil })
	}
	c.state.UpdateInteractionState(func(s *model.InteractionState) {
		s.ConfirmDialog = &model.ConfirmDialog{
			Title:   "Rebuild Index",
			Message: "This discards the cached index and rescans the trace file. Continue?",
			OnConfirm: func() {
				dismiss()
				if c.reload != nil {
					c.reload(true)
				}
			},
			OnCancel: dismiss,
		}
	})
}

func (c *Controller) findMatch(query string, from int, forward bool) {
	tr := c.state.GetTrace()
	if tr == nil {
		return
	}
	row, ok := tr.Rows().FindNext(from, query, forward)
	if !ok {
		c.setStatus(fmt.Sprintf("no match for %q", query))
		return
	}
	c.selectRow(tr, row)
}

// selectRow selects row and scrolls it into view when it is off screen.
func (c *Controller) selectRow(tr *trace.Trace, row int) {
	c.state.UpdateInteractionState(func(s *model.InteractionState) { s.SelectedRow = row })
	l := tr.Layout()
	rect, ok := l.RowRect(row)
	if !ok {
		return
	}
	vp := l.Viewport()
	if !rect.Intersects(model.Rect{Width: vp.Width, Height: vp.Height}) {
		l.CenterOn(row)
	}
}

func (c *Controller) setStatus(msg string) {
	c.state.UpdateInteractionState(func(s *model.InteractionState) { s.StatusMessage = msg })
}

// zoomAnchor keeps the selected packet in place while zooming when it is
// on screen, and the middle of the viewport otherwise.
func (c *Controller) zoomAnchor(tr *trace.Trace, selected int) float64 {
	l := tr.Layout()
	vp := l.Viewport()
	if rect, ok := l.RowRect(selected); ok {
		mid := rect.X + rect.Width/2
		if mid >= 0 && mid <= vp.Width {
			return mid
		}
	}
	return vp.Width / 2
}

// stepInLane returns the packet after (or before) selected in its thread's
// lane. With nothing selected it picks the first packet on screen.
func stepInLane(tr *trace.Trace, selected int, forward bool) (int, bool) {
	if selected < 0 || selected >= tr.RowCount() {
		if items := tr.Layout().VisibleItems(); len(items) > 0 {
			return items[0].Row, true
		}
		return 0, tr.RowCount() > 0
	}

	h := tr.Header(selected)
	lane, ok := tr.Lanes().Lane(h.ThreadID)
	if !ok {
		return 0, false
	}
	rows := lane.Rows
	pos := sort.Search(len(rows), func(i int) bool { return tr.Header(rows[i]).BeginTime >= h.BeginTime })
	for pos < len(rows) && rows[pos] != selected {
		pos++
	}
	if pos == len(rows) {
		return 0, false
	}
	if forward {
		pos++
	} else {
		pos--
	}
	if pos < 0 || pos >= len(rows) {
		return 0, false
	}
	return rows[pos], true
}
