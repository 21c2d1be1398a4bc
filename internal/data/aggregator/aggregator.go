// Package aggregator computes packet statistics of a trace.
package aggregator

import (
	"sort"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// Source is the header access the aggregator needs.
type Source interface {
	Len() int
	Header(row int) model.PacketHeader
}

// Namer resolves a packet id to a call name.
type Namer func(packetID uint16) string

// Stat holds duration statistics for a group of packets. Malformed packets
// are counted but contribute no duration.
type Stat struct {
	Key       string `json:"key"`
	Count     int    `json:"count"`
	Malformed int    `json:"malformed"`
	Total     uint64 `json:"total"`
	Max       uint64 `json:"max"`
	Min       uint64 `json:"min"`
	Bytes     int64  `json:"bytes"`
}

// Mean returns the mean duration of well-formed packets.
func (s Stat) Mean() float64 {
	n := s.Count - s.Malformed
	if n <= 0 {
		return 0
	}
	return float64(s.Total) / float64(n)
}

func (s *Stat) add(h model.PacketHeader) {
	s.Count++
	s.Bytes += int64(h.Size)
	if !h.WellFormed() {
		s.Malformed++
		return
	}
	d := h.Duration()
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
	if s.Count-s.Malformed == 1 || d < s.Min {
		s.Min = d
	}
}

// ThreadStat extends Stat with the busy span of one thread.
type ThreadStat struct {
	Stat
	ThreadID uint32          `json:"threadId"`
	Span     model.TimeRange `json:"span"`
}

// Utilization returns the share of the thread's span spent inside packets.
func (t ThreadStat) Utilization() float64 {
	span := t.Span.Duration()
	if span == 0 {
		return 0
	}
	return float64(t.Total) / float64(span)
}

// Bucket counts packets starting in [Begin, End).
type Bucket struct {
	Begin uint64 `json:"begin"`
	End   uint64 `json:"end"`
	Count int    `json:"count"`
}

// Summary is the full aggregation result.
type Summary struct {
	Packets int             `json:"packets"`
	Range   model.TimeRange `json:"range"`
	ByName  []Stat          `json:"byName"`
	Threads []ThreadStat    `json:"threads"`
}

// Aggregator groups packets by call name and by thread.
type Aggregator struct {
	name Namer
}

// NewAggregator creates an Aggregator naming packets with name.
func NewAggregator(name Namer) *Aggregator {
	return &Aggregator{name: name}
}

// Aggregate walks every row once. ByName is sorted by total duration
// descending, Threads by thread id.
func (a *Aggregator) Aggregate(src Source) Summary {
	byName := make(map[uint16]*Stat)
	byThread := make(map[uint32]*ThreadStat)
	var rng model.TimeRange
	hasRange := false

	for row, n := 0, src.Len(); row < n; row++ {
		h := src.Header(row)

		s, ok := byName[h.PacketID]
		if !ok {
			s = &Stat{Key: a.name(h.PacketID)}
			byName[h.PacketID] = s
		}
		s.add(h)

		ts, ok := byThread[h.ThreadID]
		if !ok {
			ts = &ThreadStat{ThreadID: h.ThreadID}
			byThread[h.ThreadID] = ts
		}
		first := ts.Count == ts.Malformed
		ts.add(h)
		if !h.WellFormed() {
			continue
		}
		if first {
			ts.Span = model.TimeRange{Begin: h.BeginTime, End: h.EndTime}
		} else {
			ts.Span.Begin = min(ts.Span.Begin, h.BeginTime)
			ts.Span.End = max(ts.Span.End, h.EndTime)
		}
		if !hasRange {
			rng = model.TimeRange{Begin: h.BeginTime, End: h.EndTime}
			hasRange = true
		} else {
			rng.Begin = min(rng.Begin, h.BeginTime)
			rng.End = max(rng.End, h.EndTime)
		}
	}

	summary := Summary{Packets: src.Len(), Range: rng}
	for _, s := range byName {
		summary.ByName = append(summary.ByName, *s)
	}
	sort.Slice(summary.ByName, func(i, j int) bool {
		a, b := summary.ByName[i], summary.ByName[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Key < b.Key
	})
	for _, ts := range byThread {
		summary.Threads = append(summary.Threads, *ts)
	}
	sort.Slice(summary.Threads, func(i, j int) bool { return summary.Threads[i].ThreadID < summary.Threads[j].ThreadID })
	return summary
}

// Histogram counts packet begin times of well-formed rows in n equal
// buckets across rng.
func Histogram(src Source, rng model.TimeRange, n int) []Bucket {
	if n <= 0 {
		return nil
	}
	span := rng.Duration()
	width := span / uint64(n)
	if span%uint64(n) != 0 || width == 0 {
		width++
	}

	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Begin = rng.Begin + uint64(i)*width
		buckets[i].End = buckets[i].Begin + width
	}
	for row, count := 0, src.Len(); row < count; row++ {
		h := src.Header(row)
		if !h.WellFormed() || !rng.Contains(h.BeginTime) {
			continue
		}
		i := int((h.BeginTime - rng.Begin) / width)
		if i >= n {
			i = n - 1
		}
		buckets[i].Count++
	}
	return buckets
}
