package aggregator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

type headers []model.PacketHeader

func (h headers) Len() int                          { return len(h) }
func (h headers) Header(row int) model.PacketHeader { return h[row] }

func pkt(id uint16, thread uint32, begin, end uint64) model.PacketHeader {
	return model.PacketHeader{Size: 40, PacketID: id, ThreadID: thread, BeginTime: begin, EndTime: end}
}

func names(id uint16) string { return fmt.Sprintf("call%d", id) }

func TestAggregate(t *testing.T) {
	src := headers{
		pkt(1, 7, 0, 10),
		pkt(2, 9, 5, 15),
		pkt(1, 7, 10, 20),
		pkt(3, 7, 25, 30),
		pkt(1, 9, 40, 35),
	}

	summary := NewAggregator(names).Aggregate(src)
	assert.Equal(t, 5, summary.Packets)
	assert.Equal(t, model.TimeRange{Begin: 0, End: 30}, summary.Range)

	require.Len(t, summary.ByName, 3)
	call1 := summary.ByName[0]
	assert.Equal(t, "call1", call1.Key)
	assert.Equal(t, 3, call1.Count)
	assert.Equal(t, 1, call1.Malformed)
	assert.Equal(t, uint64(20), call1.Total)
	assert.Equal(t, uint64(10), call1.Max)
	assert.Equal(t, uint64(10), call1.Min)
	assert.Equal(t, 10.0, call1.Mean())
	assert.Equal(t, int64(120), call1.Bytes)

	assert.Equal(t, "call2", summary.ByName[1].Key)
	assert.Equal(t, "call3", summary.ByName[2].Key)

	require.Len(t, summary.Threads, 2)
	t7 := summary.Threads[0]
	assert.Equal(t, uint32(7), t7.ThreadID)
	assert.Equal(t, 3, t7.Count)
	assert.Equal(t, uint64(25), t7.Total)
	assert.Equal(t, model.TimeRange{Begin: 0, End: 30}, t7.Span)
	assert.InDelta(t, 25.0/30.0, t7.Utilization(), 1e-9)

	t9 := summary.Threads[1]
	assert.Equal(t, model.TimeRange{Begin: 5, End: 15}, t9.Span, "malformed rows do not widen the span")
	assert.Equal(t, 1, t9.Malformed)
}

func TestAggregate_MalformedFirst(t *testing.T) {
	summary := NewAggregator(names).Aggregate(headers{pkt(1, 1, 50, 10), pkt(1, 1, 60, 65)})
	require.Len(t, summary.Threads, 1)
	assert.Equal(t, model.TimeRange{Begin: 60, End: 65}, summary.Threads[0].Span)
	assert.Equal(t, uint64(5), summary.ByName[0].Min)
}

func TestAggregate_Empty(t *testing.T) {
	summary := NewAggregator(names).Aggregate(headers{})
	assert.Zero(t, summary.Packets)
	assert.Empty(t, summary.ByName)
	assert.Empty(t, summary.Threads)
	assert.Zero(t, Stat{}.Mean())
	assert.Zero(t, ThreadStat{}.Utilization())
}

func TestHistogram(t *testing.T) {
	src := headers{
		pkt(1, 1, 0, 1),
		pkt(1, 1, 9, 10),
		pkt(1, 1, 10, 11),
		pkt(1, 1, 29, 30),
		pkt(1, 1, 30, 30),
		pkt(1, 1, 20, 5),
	}

	buckets := Histogram(src, model.TimeRange{Begin: 0, End: 30}, 3)
	require.Len(t, buckets, 3)
	assert.Equal(t, []int{2, 1, 2}, []int{buckets[0].Count, buckets[1].Count, buckets[2].Count})
	assert.Equal(t, uint64(10), buckets[1].Begin)

	assert.Nil(t, Histogram(src, model.TimeRange{}, 0))

	single := Histogram(src, model.TimeRange{Begin: 9, End: 9}, 4)
	assert.Equal(t, 1, single[0].Count)
}
