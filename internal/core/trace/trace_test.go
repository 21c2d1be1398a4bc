package trace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-apitrace/internal/core/decoder"
	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/timeline"
	"github.com/penwyp/go-apitrace/internal/data/cache"
	"github.com/penwyp/go-apitrace/internal/data/tracefile"
	"github.com/penwyp/go-apitrace/internal/testing/fixtures"
)

func openTrace(t *testing.T, path string, opts Options) *Trace {
	t.Helper()
	tr, err := Open(context.Background(), path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestOpen_Scenario(t *testing.T) {
	tr := openTrace(t, fixtures.ScenarioLanes().Write(t), Options{Layout: timeline.Config{LaneHeight: 10, Margin: 2}})

	assert.Equal(t, 4, tr.RowCount())
	assert.Equal(t, []uint32{7, 9}, tr.ThreadIDs())
	assert.Equal(t, 0, tr.Report().Len())
	assert.NotNil(t, tr.Decoder())
	assert.False(t, tr.FromCache())
	assert.Equal(t, "callrecord", tr.FileHeader().TracerID)

	lane7, _ := tr.Lanes().Lane(7)
	lane9, _ := tr.Lanes().Lane(9)
	assert.Len(t, lane7.Rows, 3)
	assert.Len(t, lane9.Rows, 1)

	items := tr.VisibleRects(model.Viewport{Width: 300, Height: 20})
	assert.Len(t, items, 4)

	row, ok := tr.HitTest(model.Point{X: 150, Y: 5})
	require.True(t, ok)
	assert.Equal(t, 2, row)
	assert.Equal(t, uint64(10), tr.Header(row).BeginTime)

	_, ok = tr.HitTest(model.Point{X: 220, Y: 5})
	assert.False(t, ok)
}

func TestOpen_DecoderUnavailable(t *testing.T) {
	path := fixtures.NewTraceBuilder("vulkan").
		AddSpan(fixtures.Span{Thread: 1, Begin: 0, End: 5, PacketID: 12}).
		Write(t)

	tr := openTrace(t, path, Options{})
	assert.Nil(t, tr.Decoder())
	assert.Equal(t, 1, tr.Report().Count(model.IssueDecoderUnavailable))
	assert.Equal(t, "(unknown packet id 12)", tr.DisplayText(0).Short)
	assert.Equal(t, "(unknown packet id 12)", tr.NameOf(12))
	assert.Equal(t, 1, tr.RowCount(), "packets stay indexed without a decoder")
}

func TestOpen_ForceDecoder(t *testing.T) {
	path := fixtures.NewTraceBuilder("vulkan").
		AddSpan(fixtures.Span{Thread: 1, Begin: 0, End: 5, PacketID: 12, Body: []byte{0xab}}).
		Write(t)

	tr := openTrace(t, path, Options{ForceDecoder: decoder.RawID})
	require.NotNil(t, tr.Decoder())
	assert.Equal(t, 0, tr.Report().Len())
	assert.Equal(t, "packet#12 [1 bytes] ab", tr.DisplayText(0).Short)
}

func TestOpen_IssuesAccumulate(t *testing.T) {
	path := fixtures.NewTraceBuilder("callrecord").
		Add(1, 0, 10).
		Add(1, 30, 20).
		Add(2, 5, 6).
		WithCorruptTail(4096, 8).
		Write(t)

	tr := openTrace(t, path, Options{})
	report := tr.Report()
	assert.Equal(t, 3, tr.RowCount())
	assert.Equal(t, 1, report.Count(model.IssueCorruptTrace))
	assert.Equal(t, 1, report.Count(model.IssueMalformedTimestamp))
	assert.Equal(t, "2 issues (1 CorruptTrace, 1 MalformedTimestamp)", report.Summary())

	malformed := report.Issues[1]
	assert.Equal(t, 1, malformed.Row)
	assert.Equal(t, tr.Index().Record(1).FileOffset, malformed.Offset)
	assert.True(t, tr.Lanes().IsFlagged(1))
}

func TestOpen_FatalErrors(t *testing.T) {
	_, err := Open(context.Background(), "/does/not/exist.trace", Options{})
	assert.Error(t, err)

	data := fixtures.ScenarioLanes().Bytes()
	data[0] = 'X'
	path := filepath.Join(t.TempDir(), "bad.trace")
	require.NoError(t, os.WriteFile(path, data, 0644))
	_, err = Open(context.Background(), path, Options{})
	assert.ErrorIs(t, err, tracefile.ErrNotTrace)
}

func TestOpen_UsesIndexCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir(), nil)
	require.NoError(t, err)
	path := fixtures.ScenarioLanes().WithCorruptTail(100, 1).Write(t)

	first := openTrace(t, path, Options{Cache: c})
	assert.False(t, first.FromCache())

	second := openTrace(t, path, Options{Cache: c})
	assert.True(t, second.FromCache())
	assert.Equal(t, first.Index().Records(), second.Index().Records())
	assert.Equal(t, first.Report().Issues, second.Report().Issues)

	body, err := second.Index().Body(0)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestOpen_CacheIgnoresGrowthDuringBuild(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir(), nil)
	require.NoError(t, err)
	path := fixtures.ScenarioLanes().Write(t)
	grown := fixtures.ScenarioLanes().Add(9, 40, 50).Bytes()

	appended := false
	first := openTrace(t, path, Options{Cache: c, Progress: func(scanned, total int64) {
		if scanned == total && !appended {
			appended = true
			require.NoError(t, os.WriteFile(path, grown, 0644))
		}
	}})
	require.True(t, appended)
	assert.Equal(t, 4, first.RowCount())
	assert.Equal(t, int64(len(fixtures.ScenarioLanes().Bytes())), first.Index().Identity().Size)

	second := openTrace(t, path, Options{Cache: c})
	assert.False(t, second.FromCache(), "the cached index predates the appended packet")
	assert.Equal(t, 5, second.RowCount())

	third := openTrace(t, path, Options{Cache: c})
	assert.True(t, third.FromCache())
	assert.Equal(t, 5, third.RowCount())
}
