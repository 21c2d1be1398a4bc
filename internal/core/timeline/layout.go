package timeline

import (
	"math"
	"sort"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

const (
	DefaultLaneHeight = 3.0
	DefaultMargin     = 1.0

	MinZoom = 1.0
	MaxZoom = 1e15
)

// Config fixes the vertical geometry of lanes.
type Config struct {
	LaneHeight float64
	Margin     float64
}

func (c Config) withDefaults() Config {
	if c.LaneHeight <= 0 {
		c.LaneHeight = DefaultLaneHeight
	}
	if c.Margin < 0 || c.Margin >= c.LaneHeight {
		c.Margin = 0
	}
	return c
}

// Layout maps rows to rectangles for the current viewport, zoom and scroll.
//
// A Layout is owned by a single goroutine. Rectangles of visible rows are
// cached; any change of viewport, zoom or scroll discards the whole cache
// and it is refilled lazily by the next VisibleItems or HitTest call.
type Layout struct {
	src   HeaderSource
	lanes *Lanes
	cfg   Config

	viewport model.Viewport
	zoom     float64
	scrollX  float64
	scrollY  float64

	rng      model.TimeRange
	duration float64
	rects    map[int]model.Rect
}

// NewLayout creates a layout over src partitioned by lanes, fitted to the
// whole trace.
func NewLayout(src HeaderSource, lanes *Lanes, cfg Config) *Layout {
	rng, _ := lanes.Range()
	duration := TicksToFloat(rng.Duration())
	if duration < 1 {
		duration = 1
	}
	return &Layout{
		src:      src,
		lanes:    lanes,
		cfg:      cfg.withDefaults(),
		zoom:     MinZoom,
		rng:      rng,
		duration: duration,
		rects:    make(map[int]model.Rect),
	}
}

func (l *Layout) invalidate() {
	if len(l.rects) > 0 {
		l.rects = make(map[int]model.Rect)
	}
}

// Config returns the lane geometry in use.
func (l *Layout) Config() Config { return l.cfg }

// Lanes returns the lane partition the layout draws.
func (l *Layout) Lanes() *Lanes { return l.lanes }

// Viewport returns the current viewport.
func (l *Layout) Viewport() model.Viewport { return l.viewport }

// SetViewport resizes the visible area.
func (l *Layout) SetViewport(v model.Viewport) {
	if v == l.viewport {
		return
	}
	l.viewport = v
	l.clampScroll()
	l.invalidate()
}

// Zoom returns the current zoom factor; 1 fits the trace to the viewport.
func (l *Layout) Zoom() float64 { return l.zoom }

// SetZoom changes the zoom factor, keeping the scroll offset.
func (l *Layout) SetZoom(z float64) {
	z = clampZoom(z)
	if z == l.zoom {
		return
	}
	l.zoom = z
	l.clampScroll()
	l.invalidate()
}

// ZoomAt multiplies the zoom by factor while keeping the time under anchorX
// at the same screen position.
func (l *Layout) ZoomAt(anchorX, factor float64) {
	z := clampZoom(l.zoom * factor)
	if z == l.zoom {
		return
	}
	content := anchorX + l.scrollX
	l.scrollX = content*(z/l.zoom) - anchorX
	l.zoom = z
	l.clampScroll()
	l.invalidate()
}

// Scroll returns the current scroll offsets.
func (l *Layout) Scroll() (x, y float64) { return l.scrollX, l.scrollY }

// SetScroll moves the view to the given offsets, clamped to the content.
func (l *Layout) SetScroll(x, y float64) {
	if x == l.scrollX && y == l.scrollY {
		return
	}
	l.scrollX, l.scrollY = x, y
	l.clampScroll()
	l.invalidate()
}

// ScrollBy moves the view by a relative amount.
func (l *Layout) ScrollBy(dx, dy float64) {
	l.SetScroll(l.scrollX+dx, l.scrollY+dy)
}

// FitAll resets zoom and horizontal scroll so the whole trace is visible.
func (l *Layout) FitAll() {
	l.zoom = MinZoom
	l.scrollX = 0
	l.clampScroll()
	l.invalidate()
}

// CenterOn scrolls so that row sits in the middle of the viewport.
func (l *Layout) CenterOn(row int) {
	if row < 0 || row >= l.src.Len() {
		return
	}
	h := l.src.Header(row)
	mid := l.Position(h.BeginTime)
	if h.WellFormed() {
		mid += (l.Position(h.EndTime) - mid) / 2
	}
	x := mid - l.viewport.Width/2
	y := l.scrollY
	if li, ok := l.lanes.LaneIndex(h.ThreadID); ok {
		y = (float64(li)+0.5)*l.cfg.LaneHeight - l.viewport.Height/2
	}
	l.SetScroll(x, y)
}

// ContentWidth returns the width of the whole trace at the current zoom.
func (l *Layout) ContentWidth() float64 { return l.zoom * l.viewport.Width }

// ContentHeight returns the height of all lanes stacked.
func (l *Layout) ContentHeight() float64 {
	return float64(l.lanes.Len()) * l.cfg.LaneHeight
}

func (l *Layout) clampScroll() {
	l.scrollX = clamp(l.scrollX, 0, math.Max(0, l.ContentWidth()-l.viewport.Width))
	l.scrollY = clamp(l.scrollY, 0, math.Max(0, l.ContentHeight()-l.viewport.Height))
}

// Scale returns pixels per tick.
func (l *Layout) Scale() float64 {
	return l.zoom * l.viewport.Width / l.duration
}

// Position returns the content x coordinate of time t. Times before the
// start of the trace map to negative positions.
func (l *Layout) Position(t uint64) float64 {
	if t >= l.rng.Begin {
		return TicksToFloat(t-l.rng.Begin) * l.Scale()
	}
	return -TicksToFloat(l.rng.Begin-t) * l.Scale()
}

// TimeAt returns the time under screen x, saturating at the uint64 range.
func (l *Layout) TimeAt(x float64) uint64 {
	s := l.Scale()
	if s <= 0 {
		return l.rng.Begin
	}
	ticks := (x + l.scrollX) / s
	if ticks < 0 {
		back := floatToTicks(-ticks)
		if back > l.rng.Begin {
			return 0
		}
		return l.rng.Begin - back
	}
	fwd := floatToTicks(ticks)
	if fwd > math.MaxUint64-l.rng.Begin {
		return math.MaxUint64
	}
	return l.rng.Begin + fwd
}

// RowRect computes the screen rectangle of row without touching the cache.
func (l *Layout) RowRect(row int) (model.Rect, bool) {
	if row < 0 || row >= l.src.Len() {
		return model.Rect{}, false
	}
	h := l.src.Header(row)
	li, ok := l.lanes.LaneIndex(h.ThreadID)
	if !ok {
		return model.Rect{}, false
	}
	return l.rectFor(h, li), true
}

func (l *Layout) rectFor(h model.PacketHeader, laneIndex int) model.Rect {
	begin := l.Position(h.BeginTime)
	width := 1.0
	if h.WellFormed() {
		width = math.Max(1, l.Position(h.EndTime)-begin)
	}
	return model.Rect{
		X:      begin - l.scrollX,
		Y:      float64(laneIndex)*l.cfg.LaneHeight + l.cfg.Margin - l.scrollY,
		Width:  width,
		Height: l.cfg.LaneHeight - l.cfg.Margin,
	}
}

// VisibleLanes returns the half-open range of lane indices intersecting the
// viewport.
func (l *Layout) VisibleLanes() (first, last int) {
	if l.lanes.Len() == 0 || l.viewport.Height <= 0 {
		return 0, 0
	}
	first = int(math.Floor(l.scrollY / l.cfg.LaneHeight))
	last = int(math.Ceil((l.scrollY + l.viewport.Height) / l.cfg.LaneHeight))
	if first < 0 {
		first = 0
	}
	if last > l.lanes.Len() {
		last = l.lanes.Len()
	}
	if first > last {
		first = last
	}
	return first, last
}

// VisibleItems returns the rows intersecting the viewport, lane by lane in
// begin order.
func (l *Layout) VisibleItems() []model.TimelineItem {
	if l.viewport.Width <= 0 || l.viewport.Height <= 0 {
		return nil
	}
	screen := model.Rect{Width: l.viewport.Width, Height: l.viewport.Height}
	// One pixel of slack on each side absorbs rounding in TimeAt.
	tLeft, tRight := l.TimeAt(-1), l.TimeAt(l.viewport.Width+1)

	first, last := l.VisibleLanes()
	lanes := l.lanes.Lanes()
	var items []model.TimelineItem
	for li := first; li < last; li++ {
		rows := lanes[li].Rows
		lo := sort.Search(len(rows), func(i int) bool { return l.src.Header(rows[i]).BeginTime >= tLeft })
		hi := sort.Search(len(rows), func(i int) bool { return l.src.Header(rows[i]).BeginTime > tRight })
		// Only the nearest well-formed row beginning left of the window can
		// reach into it; flagged rows in between are stepped over.
		for lo > 0 {
			lo--
			if l.src.Header(rows[lo]).WellFormed() {
				break
			}
		}
		for _, row := range rows[lo:hi] {
			rect, ok := l.rects[row]
			if !ok {
				rect = l.rectFor(l.src.Header(row), li)
				l.rects[row] = rect
			}
			if !rect.Intersects(screen) {
				continue
			}
			items = append(items, model.TimelineItem{Row: row, Rect: rect, Flagged: l.lanes.IsFlagged(row)})
		}
	}
	return items
}

// CachedRects returns the number of memoized rectangles.
func (l *Layout) CachedRects() int { return len(l.rects) }

// lastStartingAtOrBefore returns the position in rows of the last row that
// begins at or before t, or -1.
func (l *Layout) lastStartingAtOrBefore(rows []int, t uint64) int {
	return sort.Search(len(rows), func(i int) bool { return l.src.Header(rows[i]).BeginTime > t }) - 1
}

func contains(h model.PacketHeader, t uint64) bool {
	return h.BeginTime <= t && (t < h.EndTime || t == h.BeginTime)
}

// containing returns the position of the row containing t, searching back
// from i, the last row beginning at or before t. Well-formed rows of a lane
// never overlap, but flagged rows may begin inside one, so the walk steps
// over flagged rows up to the nearest well-formed row.
func (l *Layout) containing(rows []int, i int, t uint64) int {
	for j := i; j >= 0; j-- {
		h := l.src.Header(rows[j])
		if contains(h, t) {
			return j
		}
		if h.WellFormed() {
			break
		}
	}
	return -1
}

// HitTestLane returns the row of threadID whose interval contains t.
func (l *Layout) HitTestLane(threadID uint32, t uint64) (int, bool) {
	lane, ok := l.lanes.Lane(threadID)
	if !ok {
		return 0, false
	}
	j := l.containing(lane.Rows, l.lastStartingAtOrBefore(lane.Rows, t), t)
	if j < 0 {
		return 0, false
	}
	return lane.Rows[j], true
}

// Nearest returns the row of threadID closest in time to t: the containing
// row if any, otherwise the neighbour with the smaller gap, preferring the
// earlier one on ties.
func (l *Layout) Nearest(threadID uint32, t uint64) (int, bool) {
	lane, ok := l.lanes.Lane(threadID)
	if !ok || len(lane.Rows) == 0 {
		return 0, false
	}
	i := l.lastStartingAtOrBefore(lane.Rows, t)
	if j := l.containing(lane.Rows, i, t); j >= 0 {
		return lane.Rows[j], true
	}
	if i < 0 {
		return lane.Rows[0], true
	}

	// The closest row ending before t is row i or, past flagged rows, the
	// nearest well-formed row before it.
	prev, before := i, uint64(math.MaxUint64)
	for j := i; j >= 0; j-- {
		h := l.src.Header(lane.Rows[j])
		end := h.EndTime
		if !h.WellFormed() {
			end = h.BeginTime
		}
		var gap uint64
		if t > end {
			gap = t - end
		}
		if gap < before {
			prev, before = j, gap
		}
		if h.WellFormed() {
			break
		}
	}
	if i == len(lane.Rows)-1 {
		return lane.Rows[prev], true
	}
	if after := l.src.Header(lane.Rows[i+1]).BeginTime - t; after < before {
		return lane.Rows[i+1], true
	}
	return lane.Rows[prev], true
}

// HitTest returns the row drawn under the screen point p.
func (l *Layout) HitTest(p model.Point) (int, bool) {
	contentY := p.Y + l.scrollY
	if contentY < 0 {
		return 0, false
	}
	li := int(contentY / l.cfg.LaneHeight)
	lanes := l.lanes.Lanes()
	if li >= len(lanes) {
		return 0, false
	}
	rows := lanes[li].Rows
	i := l.lastStartingAtOrBefore(rows, l.TimeAt(p.X))

	hit := func(j int) bool {
		if j < 0 || j >= len(rows) {
			return false
		}
		rect, ok := l.rects[rows[j]]
		if !ok {
			rect = l.rectFor(l.src.Header(rows[j]), li)
			l.rects[rows[j]] = rect
		}
		return rect.Contains(p)
	}

	// Rounding in TimeAt and the one pixel minimum width can put the hit
	// on a neighbour of the searched row.
	if hit(i) {
		return rows[i], true
	}
	if hit(i + 1) {
		return rows[i+1], true
	}
	// A well-formed row may enclose p behind flagged rows beginning inside it.
	for j := i - 1; j >= 0; j-- {
		if hit(j) {
			return rows[j], true
		}
		if l.src.Header(rows[j]).WellFormed() {
			break
		}
	}
	return 0, false
}

func clampZoom(z float64) float64 {
	return clamp(z, MinZoom, MaxZoom)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
