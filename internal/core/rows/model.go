// Package rows adapts a packet index and a decoder into a read-only
// row/column view for presentation layers.
package rows

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/penwyp/go-apitrace/internal/core/decoder"
	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/util"
)

// DefaultCacheSize bounds the number of memoized decoded rows.
const DefaultCacheSize = 4096

// Source is the packet index surface the row model reads.
type Source interface {
	Len() int
	Header(row int) model.PacketHeader
	Body(row int) ([]byte, error)
}

// Options configures a Model.
type Options struct {
	// Decoder may be nil; rows then show the fallback text.
	Decoder decoder.PacketDecoder
	// Flagged reports rows with malformed time intervals.
	Flagged   func(row int) bool
	CacheSize int
	Logger    util.LoggerInterface
}

type decoded struct {
	text      model.DisplayText
	undecoded bool
}

// Model is the tabular view of a trace. It is safe for concurrent use.
type Model struct {
	src       Source
	dec       decoder.PacketDecoder
	flagged   func(row int) bool
	cache     *lru.Cache
	threadIDs []uint32
	logger    util.LoggerInterface
}

// New creates a row model over src.
func New(src Source, opts Options) (*Model, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create decoded text cache: %w", err)
	}
	flagged := opts.Flagged
	if flagged == nil {
		flagged = func(int) bool { return false }
	}
	return &Model{
		src:       src,
		dec:       opts.Decoder,
		flagged:   flagged,
		cache:     cache,
		threadIDs: collectThreads(src),
		logger:    util.OrNop(opts.Logger),
	}, nil
}

func collectThreads(src Source) []uint32 {
	seen := make(map[uint32]struct{})
	ids := make([]uint32, 0)
	for row, n := 0, src.Len(); row < n; row++ {
		tid := src.Header(row).ThreadID
		if _, ok := seen[tid]; !ok {
			seen[tid] = struct{}{}
			ids = append(ids, tid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RowCount returns the number of rows.
func (m *Model) RowCount() int { return m.src.Len() }

// Header returns the packet header of row.
func (m *Model) Header(row int) model.PacketHeader { return m.src.Header(row) }

// ThreadIDs lists distinct thread ids in ascending order.
func (m *Model) ThreadIDs() []uint32 { return m.threadIDs }

// HasDecoder reports whether rows are decoded or shown with fallback text.
func (m *Model) HasDecoder() bool { return m.dec != nil }

// Columns lists the columns in display order.
func (m *Model) Columns() []Column {
	cols := make([]Column, numColumns)
	for i := range cols {
		cols[i] = Column(i)
	}
	return cols
}

// Name returns the call name of row.
func (m *Model) Name(row int) string {
	id := m.src.Header(row).PacketID
	if m.dec == nil {
		return decoder.FallbackName(id)
	}
	return m.dec.NameOf(id)
}

// DisplayText returns the decoded text of row.
func (m *Model) DisplayText(row int) model.DisplayText {
	return m.decode(row).text
}

func (m *Model) decode(row int) decoded {
	if v, ok := m.cache.Get(row); ok {
		return v.(decoded)
	}

	h := m.src.Header(row)
	var d decoded
	switch {
	case m.dec == nil:
		d = decoded{text: decoder.Fallback(h), undecoded: true}
	default:
		body, err := m.src.Body(row)
		if err != nil {
			m.logger.Warn("packet body unreadable", util.F("row", row), util.F("error", err))
			msg := fmt.Sprintf("%s <body unreadable: %v>", m.dec.NameOf(h.PacketID), err)
			// Not cached: a later read may succeed.
			return decoded{text: model.DisplayText{Short: msg, Multiline: msg}, undecoded: true}
		}
		d = decoded{text: m.dec.Decode(h, body)}
	}
	m.cache.Add(row, d)
	return d
}

// CellText returns the text of one cell.
func (m *Model) CellText(row int, col Column) string {
	h := m.src.Header(row)
	switch col {
	case ColIndex:
		return strconv.FormatUint(uint64(h.GlobalIndex), 10)
	case ColThread:
		return strconv.FormatUint(uint64(h.ThreadID), 10)
	case ColName:
		return m.Name(row)
	case ColBegin:
		return strconv.FormatUint(h.BeginTime, 10)
	case ColEnd:
		return strconv.FormatUint(h.EndTime, 10)
	case ColDuration:
		if !h.WellFormed() {
			return "!" + util.FormatTicks(h.BeginTime-h.EndTime)
		}
		return util.FormatTicks(h.Duration())
	case ColSize:
		return util.FormatBytes(int64(h.Size))
	case ColSummary:
		return m.DisplayText(row).Short
	default:
		return ""
	}
}

// CellStyleHints returns presentation hints for one cell.
func (m *Model) CellStyleHints(row int, col Column) StyleHints {
	hints := StyleHints{Flagged: m.flagged(row)}
	switch col {
	case ColIndex, ColThread, ColBegin, ColEnd, ColDuration, ColSize:
		hints.Align = AlignRight
		hints.Monospace = true
	case ColName:
		hints.Undecoded = m.dec == nil
	case ColSummary:
		hints.Undecoded = m.decode(row).undecoded
	}
	return hints
}

// IsSearchMatch reports whether query occurs, case-insensitively, in the
// call name or summary of row. A query of the form "tid:N" matches rows of
// thread N and "#N" matches global index N. The empty query matches
// nothing.
func (m *Model) IsSearchMatch(row int, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	h := m.src.Header(row)
	if rest, ok := strings.CutPrefix(q, "tid:"); ok {
		tid, err := strconv.ParseUint(rest, 10, 32)
		return err == nil && uint32(tid) == h.ThreadID
	}
	if rest, ok := strings.CutPrefix(q, "#"); ok {
		if gi, err := strconv.ParseUint(rest, 10, 32); err == nil {
			return uint32(gi) == h.GlobalIndex
		}
	}
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(m.Name(row)), q) {
		return true
	}
	return strings.Contains(strings.ToLower(m.DisplayText(row).Short), q)
}

// FindNext searches for the next row matching query, starting after from
// (or before it when forward is false) and wrapping around once. from may
// be -1 to start at the first row going forward.
func (m *Model) FindNext(from int, query string, forward bool) (int, bool) {
	n := m.src.Len()
	if n == 0 || strings.TrimSpace(query) == "" {
		return 0, false
	}
	step := 1
	if !forward {
		step = n - 1
	}
	start := from % n
	if from < 0 {
		start = 0
		if forward {
			start = n - 1
		}
	}
	row := start
	for i := 0; i < n; i++ {
		row = (row + step) % n
		if m.IsSearchMatch(row, query) {
			return row, true
		}
	}
	return 0, false
}
