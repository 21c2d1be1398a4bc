package timeline

import (
	"sort"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// HeaderSource is the read side of a packet index the lane builder needs.
type HeaderSource interface {
	Len() int
	Header(row int) model.PacketHeader
}

// Lane holds the rows of one thread ordered by begin time.
type Lane struct {
	ThreadID uint32
	Rows     []int
}

// Lanes is the per-thread partition of a trace.
type Lanes struct {
	lanes     []Lane
	byThread  map[uint32]int
	flagged   map[int]struct{}
	malformed []int
	rng       model.TimeRange
	hasRange  bool
}

// BuildLanes partitions src by thread in a single pass over its rows.
//
// Lanes come out ordered by ascending thread id. Rows whose end precedes
// their begin stay in their lane but are flagged and excluded from the
// global time range. A lane whose rows were not recorded in begin order is
// stably sorted by begin time, then global index.
func BuildLanes(src HeaderSource) *Lanes {
	l := &Lanes{
		byThread: make(map[uint32]int),
		flagged:  make(map[int]struct{}),
	}
	unsorted := make(map[int]bool)
	lastBegin := make([]uint64, 0)

	for row, n := 0, src.Len(); row < n; row++ {
		h := src.Header(row)

		li, ok := l.byThread[h.ThreadID]
		if !ok {
			li = len(l.lanes)
			l.byThread[h.ThreadID] = li
			l.lanes = append(l.lanes, Lane{ThreadID: h.ThreadID})
			lastBegin = append(lastBegin, 0)
		}
		lane := &l.lanes[li]
		if len(lane.Rows) > 0 && h.BeginTime < lastBegin[li] {
			unsorted[li] = true
		}
		lane.Rows = append(lane.Rows, row)
		lastBegin[li] = h.BeginTime

		if !h.WellFormed() {
			l.flagged[row] = struct{}{}
			l.malformed = append(l.malformed, row)
			continue
		}
		if !l.hasRange {
			l.rng = model.TimeRange{Begin: h.BeginTime, End: h.EndTime}
			l.hasRange = true
			continue
		}
		if h.BeginTime < l.rng.Begin {
			l.rng.Begin = h.BeginTime
		}
		if h.EndTime > l.rng.End {
			l.rng.End = h.EndTime
		}
	}

	for li := range unsorted {
		rows := l.lanes[li].Rows
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := src.Header(rows[i]), src.Header(rows[j])
			if a.BeginTime != b.BeginTime {
				return a.BeginTime < b.BeginTime
			}
			return a.GlobalIndex < b.GlobalIndex
		})
	}

	sort.Slice(l.lanes, func(i, j int) bool { return l.lanes[i].ThreadID < l.lanes[j].ThreadID })
	for i, lane := range l.lanes {
		l.byThread[lane.ThreadID] = i
	}
	return l
}

// Lanes returns all lanes in ascending thread order. Callers must not
// modify the result.
func (l *Lanes) Lanes() []Lane { return l.lanes }

// Len returns the number of lanes.
func (l *Lanes) Len() int { return len(l.lanes) }

// Lane returns the lane of threadID.
func (l *Lanes) Lane(threadID uint32) (Lane, bool) {
	i, ok := l.byThread[threadID]
	if !ok {
		return Lane{}, false
	}
	return l.lanes[i], true
}

// LaneIndex returns the vertical position of threadID's lane.
func (l *Lanes) LaneIndex(threadID uint32) (int, bool) {
	i, ok := l.byThread[threadID]
	return i, ok
}

// ThreadIDs lists the threads in lane order.
func (l *Lanes) ThreadIDs() []uint32 {
	ids := make([]uint32, len(l.lanes))
	for i, lane := range l.lanes {
		ids[i] = lane.ThreadID
	}
	return ids
}

// Range returns the span covered by well-formed rows. ok is false when
// there are none.
func (l *Lanes) Range() (model.TimeRange, bool) { return l.rng, l.hasRange }

// IsFlagged reports whether row has a malformed time interval.
func (l *Lanes) IsFlagged(row int) bool {
	_, ok := l.flagged[row]
	return ok
}

// Malformed lists flagged rows in index order.
func (l *Lanes) Malformed() []int { return l.malformed }
