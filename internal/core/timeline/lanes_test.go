package timeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// headers is an in-memory HeaderSource.
type headers []model.PacketHeader

func (h headers) Len() int                          { return len(h) }
func (h headers) Header(row int) model.PacketHeader { return h[row] }

func span(thread uint32, begin, end uint64) model.PacketHeader {
	return model.PacketHeader{Size: model.PacketHeaderSize, PacketID: 1, ThreadID: thread, BeginTime: begin, EndTime: end}
}

func withIndexes(hs ...model.PacketHeader) headers {
	for i := range hs {
		hs[i].GlobalIndex = uint32(i)
	}
	return headers(hs)
}

// scenario is thread 7 with [0,10] [10,20] [25,30] and thread 9 with [5,15].
func scenario() headers {
	return withIndexes(span(7, 0, 10), span(9, 5, 15), span(7, 10, 20), span(7, 25, 30))
}

func TestBuildLanes_Scenario(t *testing.T) {
	lanes := BuildLanes(scenario())

	want := []Lane{
		{ThreadID: 7, Rows: []int{0, 2, 3}},
		{ThreadID: 9, Rows: []int{1}},
	}
	if diff := cmp.Diff(want, lanes.Lanes()); diff != "" {
		t.Errorf("lanes mismatch (-want +got):\n%s", diff)
	}

	rng, ok := lanes.Range()
	require.True(t, ok)
	assert.Equal(t, model.TimeRange{Begin: 0, End: 30}, rng)
	assert.Equal(t, []uint32{7, 9}, lanes.ThreadIDs())

	li, ok := lanes.LaneIndex(9)
	require.True(t, ok)
	assert.Equal(t, 1, li)
	_, ok = lanes.Lane(8)
	assert.False(t, ok)
	assert.Empty(t, lanes.Malformed())
}

func TestBuildLanes_OrderedAndNonOverlapping(t *testing.T) {
	src := withIndexes(
		span(3, 0, 5), span(1, 0, 2), span(2, 1, 4), span(1, 2, 6),
		span(3, 5, 9), span(2, 4, 4), span(1, 6, 7),
	)
	lanes := BuildLanes(src)

	assert.Equal(t, []uint32{1, 2, 3}, lanes.ThreadIDs())
	for _, lane := range lanes.Lanes() {
		for i := 1; i < len(lane.Rows); i++ {
			prev, cur := src.Header(lane.Rows[i-1]), src.Header(lane.Rows[i])
			assert.LessOrEqual(t, prev.BeginTime, cur.BeginTime)
			assert.LessOrEqual(t, prev.EndTime, cur.BeginTime, "thread %d rows overlap", lane.ThreadID)
		}
	}
}

func TestBuildLanes_MalformedRowsFlagged(t *testing.T) {
	src := withIndexes(span(1, 10, 20), span(1, 50, 5), span(2, 0, 100))
	lanes := BuildLanes(src)

	assert.True(t, lanes.IsFlagged(1))
	assert.False(t, lanes.IsFlagged(0))
	assert.Equal(t, []int{1}, lanes.Malformed())

	lane, ok := lanes.Lane(1)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, lane.Rows, "malformed rows stay in their lane")

	rng, _ := lanes.Range()
	assert.Equal(t, model.TimeRange{Begin: 0, End: 100}, rng)
}

func TestBuildLanes_MalformedExcludedFromRange(t *testing.T) {
	lanes := BuildLanes(withIndexes(span(1, 10, 20), span(1, 1000, 1)))
	rng, ok := lanes.Range()
	require.True(t, ok)
	assert.Equal(t, model.TimeRange{Begin: 10, End: 20}, rng)
}

func TestBuildLanes_OutOfOrderLaneSorted(t *testing.T) {
	src := headers{
		{ThreadID: 4, GlobalIndex: 0, BeginTime: 30, EndTime: 40},
		{ThreadID: 4, GlobalIndex: 2, BeginTime: 10, EndTime: 20},
		{ThreadID: 4, GlobalIndex: 1, BeginTime: 10, EndTime: 10},
		{ThreadID: 5, GlobalIndex: 3, BeginTime: 0, EndTime: 1},
	}
	lanes := BuildLanes(src)
	lane, _ := lanes.Lane(4)
	assert.Equal(t, []int{2, 1, 0}, lane.Rows)
}

func TestBuildLanes_Deterministic(t *testing.T) {
	src := scenario()
	first := BuildLanes(src)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first.Lanes(), BuildLanes(src).Lanes()); diff != "" {
			t.Fatalf("lanes differ between builds:\n%s", diff)
		}
	}
}

func TestBuildLanes_Empty(t *testing.T) {
	lanes := BuildLanes(headers{})
	assert.Equal(t, 0, lanes.Len())
	_, ok := lanes.Range()
	assert.False(t, ok)
}
