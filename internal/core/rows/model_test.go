package rows

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-apitrace/internal/core/decoder"
	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/data/index"
	"github.com/penwyp/go-apitrace/internal/testing/fixtures"
)

func buildIndex(t *testing.T, b *fixtures.TraceBuilder) *index.PacketIndex {
	t.Helper()
	data := b.Bytes()
	idx, _, err := index.Build(context.Background(), bytes.NewReader(data), int64(len(data)), index.Options{})
	require.NoError(t, err)
	return idx
}

func sampleTrace() *fixtures.TraceBuilder {
	return fixtures.NewTraceBuilder("callrecord").
		AddSpan(fixtures.Span{Thread: 9, Begin: 0, End: 10, PacketID: 3, Body: fixtures.CallBody(0, 4, 0, 36)}).
		AddSpan(fixtures.Span{Thread: 2, Begin: 5, End: 15, PacketID: 5, Body: fixtures.CallBody(0, 3553, 7)}).
		AddSpan(fixtures.Span{Thread: 9, Begin: 20, End: 12000, PacketID: 8, Body: fixtures.CallBody(1)}).
		AddSpan(fixtures.Span{Thread: 2, Begin: 30, End: 25, PacketID: 6, Body: fixtures.CallBody(0, 16384)})
}

func newModel(t *testing.T, idx Source, dec decoder.PacketDecoder) *Model {
	t.Helper()
	m, err := New(idx, Options{
		Decoder: dec,
		Flagged: func(row int) bool { return !idx.Header(row).WellFormed() },
	})
	require.NoError(t, err)
	return m
}

func callDecoder(t *testing.T) decoder.PacketDecoder {
	t.Helper()
	d, err := decoder.CallRecordFactory(nil)(model.FileHeader{})
	require.NoError(t, err)
	return d
}

func TestModel_Basics(t *testing.T) {
	m := newModel(t, buildIndex(t, sampleTrace()), callDecoder(t))

	assert.Equal(t, 4, m.RowCount())
	assert.Equal(t, []uint32{2, 9}, m.ThreadIDs())
	assert.Len(t, m.Columns(), 8)
	assert.Equal(t, ColIndex, m.Columns()[0])
	assert.Equal(t, uint32(2), m.Header(1).ThreadID)
	assert.Equal(t, "glDrawArrays(4, 0, 36) = 0", m.DisplayText(0).Short)
}

func TestModel_CellText(t *testing.T) {
	m := newModel(t, buildIndex(t, sampleTrace()), callDecoder(t))

	tests := []struct {
		row  int
		col  Column
		want string
	}{
		{0, ColIndex, "0"},
		{1, ColThread, "2"},
		{0, ColName, "glDrawArrays"},
		{2, ColBegin, "20"},
		{2, ColEnd, "12000"},
		{2, ColDuration, "12.0K"},
		{3, ColDuration, "!5"},
		{0, ColSize, "64 B"},
		{2, ColSummary, "SwapBuffers() = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.col.Title(), func(t *testing.T) {
			assert.Equal(t, tt.want, m.CellText(tt.row, tt.col))
		})
	}
}

func TestModel_StyleHints(t *testing.T) {
	m := newModel(t, buildIndex(t, sampleTrace()), callDecoder(t))

	assert.Equal(t, AlignRight, m.CellStyleHints(0, ColBegin).Align)
	assert.Equal(t, AlignLeft, m.CellStyleHints(0, ColSummary).Align)
	assert.True(t, m.CellStyleHints(3, ColName).Flagged)
	assert.False(t, m.CellStyleHints(0, ColName).Flagged)
	assert.False(t, m.CellStyleHints(0, ColSummary).Undecoded)
}

func TestModel_NoDecoderFallsBack(t *testing.T) {
	m := newModel(t, buildIndex(t, sampleTrace()), nil)

	assert.False(t, m.HasDecoder())
	assert.Equal(t, "(unknown packet id 3)", m.DisplayText(0).Short)
	assert.Equal(t, "(unknown packet id 5)", m.CellText(1, ColName))
	assert.True(t, m.CellStyleHints(0, ColSummary).Undecoded)
	assert.Equal(t, "12000", m.CellText(2, ColEnd), "headers stay readable without a decoder")
}

type failingBodies struct {
	*index.PacketIndex
	fail bool
}

func (f *failingBodies) Body(row int) ([]byte, error) {
	if f.fail {
		return nil, errors.New("disk gone")
	}
	return f.PacketIndex.Body(row)
}

func TestModel_BodyReadFailure(t *testing.T) {
	src := &failingBodies{PacketIndex: buildIndex(t, sampleTrace()), fail: true}
	m := newModel(t, src, callDecoder(t))

	text := m.DisplayText(0)
	assert.Contains(t, text.Short, "body unreadable")
	assert.True(t, m.CellStyleHints(0, ColSummary).Undecoded)

	src.fail = false
	assert.Equal(t, "glDrawArrays(4, 0, 36) = 0", m.DisplayText(0).Short, "failures are not cached")
}

func TestModel_Search(t *testing.T) {
	m := newModel(t, buildIndex(t, sampleTrace()), callDecoder(t))

	tests := []struct {
		name  string
		row   int
		query string
		want  bool
	}{
		{"name substring", 0, "drawarr", true},
		{"argument in summary", 1, "3553", true},
		{"no match", 1, "SwapBuffers", false},
		{"thread filter", 1, "tid:2", true},
		{"thread filter other", 0, "tid:2", false},
		{"global index", 2, "#2", true},
		{"empty query", 0, "  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsSearchMatch(tt.row, tt.query))
		})
	}
}

func TestModel_FindNext(t *testing.T) {
	m := newModel(t, buildIndex(t, sampleTrace()), callDecoder(t))

	row, ok := m.FindNext(-1, "tid:9", true)
	require.True(t, ok)
	assert.Equal(t, 0, row)

	row, ok = m.FindNext(0, "tid:9", true)
	require.True(t, ok)
	assert.Equal(t, 2, row)

	row, ok = m.FindNext(2, "tid:9", true)
	require.True(t, ok)
	assert.Equal(t, 0, row, "search wraps around")

	row, ok = m.FindNext(0, "tid:2", false)
	require.True(t, ok)
	assert.Equal(t, 3, row)

	row, ok = m.FindNext(-1, "gl", false)
	require.True(t, ok)
	assert.Equal(t, 3, row, "backward search from -1 starts at the last row")

	_, ok = m.FindNext(0, "nothing like this", true)
	assert.False(t, ok)
}

func TestModel_ConcurrentDisplayText(t *testing.T) {
	m, err := New(buildIndex(t, sampleTrace()), Options{Decoder: callDecoder(t), CacheSize: 2})
	require.NoError(t, err)

	want := make([]model.DisplayText, m.RowCount())
	for row := range want {
		want[row] = m.DisplayText(row)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				row := i % m.RowCount()
				assert.Equal(t, want[row], m.DisplayText(row))
			}
		}()
	}
	wg.Wait()
}

func TestParseColumn(t *testing.T) {
	col, err := ParseColumn("Duration")
	require.NoError(t, err)
	assert.Equal(t, ColDuration, col)

	_, err = ParseColumn("color")
	assert.Error(t, err)
}
