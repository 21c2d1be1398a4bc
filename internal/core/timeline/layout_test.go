package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// newScenarioLayout spans ticks [0,30] over 300 pixels: 10 pixels per tick.
func newScenarioLayout(t *testing.T) *Layout {
	t.Helper()
	src := scenario()
	l := NewLayout(src, BuildLanes(src), Config{LaneHeight: 10, Margin: 2})
	l.SetViewport(model.Viewport{Width: 300, Height: 20})
	require.Equal(t, 10.0, l.Scale())
	return l
}

func TestLayout_RowRects(t *testing.T) {
	l := newScenarioLayout(t)

	tests := []struct {
		row  int
		want model.Rect
	}{
		{0, model.Rect{X: 0, Y: 2, Width: 100, Height: 8}},
		{1, model.Rect{X: 50, Y: 12, Width: 100, Height: 8}},
		{2, model.Rect{X: 100, Y: 2, Width: 100, Height: 8}},
		{3, model.Rect{X: 250, Y: 2, Width: 50, Height: 8}},
	}
	for _, tt := range tests {
		rect, ok := l.RowRect(tt.row)
		require.True(t, ok)
		assert.Equal(t, tt.want, rect, "row %d", tt.row)
	}

	_, ok := l.RowRect(4)
	assert.False(t, ok)
}

func TestLayout_HitTestLane(t *testing.T) {
	l := newScenarioLayout(t)

	tests := []struct {
		name    string
		thread  uint32
		t       uint64
		wantRow int
		wantOK  bool
	}{
		{"inside second packet", 7, 15, 2, true},
		{"gap between packets", 7, 22, 0, false},
		{"shared boundary belongs to later packet", 7, 10, 2, true},
		{"start of trace", 7, 0, 0, true},
		{"end is exclusive", 7, 30, 0, false},
		{"other thread", 9, 15 - 1, 1, true},
		{"before first packet", 9, 4, 0, false},
		{"unknown thread", 8, 15, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, ok := l.HitTestLane(tt.thread, tt.t)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRow, row)
			}
		})
	}
}

func TestLayout_HitTestZeroLengthPacket(t *testing.T) {
	src := withIndexes(span(1, 0, 10), span(1, 20, 20), span(1, 30, 40))
	l := NewLayout(src, BuildLanes(src), Config{LaneHeight: 10, Margin: 0})
	l.SetViewport(model.Viewport{Width: 400, Height: 10})

	row, ok := l.HitTestLane(1, 20)
	require.True(t, ok)
	assert.Equal(t, 1, row)

	rect, _ := l.RowRect(1)
	assert.Equal(t, 1.0, rect.Width, "zero length packets stay one pixel wide")
	row, ok = l.HitTest(model.Point{X: rect.X + 0.5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, 1, row)
}

func TestLayout_HitTestPoint(t *testing.T) {
	l := newScenarioLayout(t)

	tests := []struct {
		name    string
		p       model.Point
		wantRow int
		wantOK  bool
	}{
		{"thread 7 at t=15", model.Point{X: 150, Y: 5}, 2, true},
		{"thread 9 at t=15", model.Point{X: 149, Y: 15}, 1, true},
		{"gap at t=22", model.Point{X: 220, Y: 5}, 0, false},
		{"lane margin", model.Point{X: 150, Y: 1}, 0, false},
		{"below last lane", model.Point{X: 150, Y: 25}, 0, false},
		{"above content", model.Point{X: 150, Y: -1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, ok := l.HitTest(tt.p)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRow, row)
			}
		})
	}
}

func TestLayout_ZoomDoublesDistances(t *testing.T) {
	l := newScenarioLayout(t)
	before := l.Position(20) - l.Position(10)

	l.SetZoom(l.Zoom() * 2)
	after := l.Position(20) - l.Position(10)

	assert.InDelta(t, 2*before, after, 1e-9)
}

func TestLayout_ZoomAtKeepsAnchor(t *testing.T) {
	l := newScenarioLayout(t)
	require.Equal(t, uint64(15), l.TimeAt(150))

	l.ZoomAt(150, 2)
	assert.Equal(t, 2.0, l.Zoom())
	x, _ := l.Scroll()
	assert.Equal(t, 150.0, x)
	assert.Equal(t, uint64(15), l.TimeAt(150))

	l.ZoomAt(150, 0.1)
	assert.Equal(t, MinZoom, l.Zoom(), "cannot zoom out past fit")
}

func TestLayout_PositionBeforeRangeIsNegative(t *testing.T) {
	src := withIndexes(span(1, 100, 200))
	l := NewLayout(src, BuildLanes(src), Config{})
	l.SetViewport(model.Viewport{Width: 100, Height: 10})

	assert.Equal(t, -50.0, l.Position(50))
	assert.Equal(t, uint64(0), l.TimeAt(-1e9))
	assert.Equal(t, uint64(math.MaxUint64), l.TimeAt(1e30))
}

func TestLayout_VisibleItemsAndCache(t *testing.T) {
	l := newScenarioLayout(t)

	items := l.VisibleItems()
	assert.Len(t, items, 4)
	assert.Equal(t, 4, l.CachedRects())

	l.SetZoom(2)
	assert.Equal(t, 0, l.CachedRects(), "zoom discards the cache")

	items = l.VisibleItems()
	rows := make([]int, len(items))
	for i, it := range items {
		rows[i] = it.Row
	}
	assert.Equal(t, []int{0, 2, 1}, rows)
	assert.Equal(t, 3, l.CachedRects())

	l.ScrollBy(50, 0)
	assert.Equal(t, 0, l.CachedRects(), "scroll discards the cache")
	items = l.VisibleItems()
	require.NotEmpty(t, items)
	assert.Equal(t, -50.0, items[0].Rect.X)

	l.SetViewport(model.Viewport{Width: 300, Height: 10})
	assert.Equal(t, 0, l.CachedRects(), "resize discards the cache")
	for _, it := range l.VisibleItems() {
		assert.NotEqual(t, 1, it.Row, "lane of thread 9 is scrolled out")
	}
}

func TestLayout_VisibleItemsFlagsMalformed(t *testing.T) {
	src := withIndexes(span(1, 0, 10), span(1, 5, 2))
	l := NewLayout(src, BuildLanes(src), Config{})
	l.SetViewport(model.Viewport{Width: 100, Height: 10})

	items := l.VisibleItems()
	require.Len(t, items, 2)
	assert.False(t, items[0].Flagged)
	assert.True(t, items[1].Flagged)
	assert.Equal(t, 1.0, items[1].Rect.Width)
}

func TestLayout_Nearest(t *testing.T) {
	l := newScenarioLayout(t)

	tests := []struct {
		thread uint32
		t      uint64
		want   int
	}{
		{7, 15, 2},
		{7, 22, 2},
		{7, 24, 3},
		{7, 100, 3},
		{9, 0, 1},
	}
	for _, tt := range tests {
		row, ok := l.Nearest(tt.thread, tt.t)
		require.True(t, ok)
		assert.Equal(t, tt.want, row, "thread %d t=%d", tt.thread, tt.t)
	}
	_, ok := l.Nearest(8, 0)
	assert.False(t, ok)
}

func TestLayout_CenterOnAndFit(t *testing.T) {
	l := newScenarioLayout(t)
	l.SetZoom(2)

	l.CenterOn(2)
	x, y := l.Scroll()
	assert.Equal(t, 150.0, x)
	assert.Equal(t, 0.0, y)

	l.CenterOn(3)
	x, _ = l.Scroll()
	assert.Equal(t, 300.0, x, "scroll is clamped to the content")

	l.FitAll()
	x, _ = l.Scroll()
	assert.Equal(t, 0.0, x)
	assert.Equal(t, MinZoom, l.Zoom())
}

func TestLayout_Empty(t *testing.T) {
	l := NewLayout(headers{}, BuildLanes(headers{}), Config{})
	l.SetViewport(model.Viewport{Width: 80, Height: 20})

	assert.Empty(t, l.VisibleItems())
	_, ok := l.HitTest(model.Point{X: 1, Y: 1})
	assert.False(t, ok)
	assert.Equal(t, 80.0, l.Scale())
}

// newEnclosingLayout has a malformed row beginning inside a well-formed
// packet: [0,100], {begin 50, end 10}, [120,130], one tick per pixel.
func newEnclosingLayout(t *testing.T) *Layout {
	t.Helper()
	src := withIndexes(span(1, 0, 100), span(1, 50, 10), span(1, 120, 130))
	l := NewLayout(src, BuildLanes(src), Config{LaneHeight: 10})
	l.SetViewport(model.Viewport{Width: 130, Height: 10})
	require.Equal(t, 1.0, l.Scale())
	return l
}

func TestLayout_FlaggedRowInsidePacket(t *testing.T) {
	l := newEnclosingLayout(t)

	lane := []struct {
		t      uint64
		want   int
		wantOK bool
	}{
		{70, 0, true},
		{50, 1, true},
		{99, 0, true},
		{110, 0, false},
		{125, 2, true},
	}
	for _, tt := range lane {
		row, ok := l.HitTestLane(1, tt.t)
		assert.Equal(t, tt.wantOK, ok, "t=%d", tt.t)
		if tt.wantOK {
			assert.Equal(t, tt.want, row, "t=%d", tt.t)
		}
	}

	nearest := []struct {
		t    uint64
		want int
	}{
		{70, 0},
		{110, 0},
		{116, 2},
	}
	for _, tt := range nearest {
		row, ok := l.Nearest(1, tt.t)
		require.True(t, ok)
		assert.Equal(t, tt.want, row, "nearest t=%d", tt.t)
	}

	row, ok := l.HitTest(model.Point{X: 70.5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, 0, row)
}

func TestLayout_VisibleItemsKeepsEnclosingPacket(t *testing.T) {
	l := newEnclosingLayout(t)
	l.SetZoom(10)
	l.SetScroll(600, 0)

	items := l.VisibleItems()
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].Row)
	assert.False(t, items[0].Flagged)
}

func TestLayout_HitTestFillsCache(t *testing.T) {
	l := newEnclosingLayout(t)
	require.Equal(t, 0, l.CachedRects())

	_, ok := l.HitTest(model.Point{X: 70.5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, 3, l.CachedRects())

	l.VisibleItems()
	assert.Equal(t, 3, l.CachedRects())
}
