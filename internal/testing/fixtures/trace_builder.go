// Package fixtures builds trace files for tests.
package fixtures

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/data/tracefile"
)

// Span is one packet to emit.
type Span struct {
	Thread   uint32
	Begin    uint64
	End      uint64
	PacketID uint16
	Body     []byte
}

// TraceBuilder accumulates packets and renders them into a trace file.
type TraceBuilder struct {
	header model.FileHeader
	spans  []Span
	tail   []byte
}

// NewTraceBuilder starts a trace recorded by tracerID.
func NewTraceBuilder(tracerID string) *TraceBuilder {
	return &TraceBuilder{
		header: model.FileHeader{
			FormatVersion: tracefile.CurrentVersion,
			WordSize:      8,
			ByteOrder:     model.LittleEndian,
			TracerVersion: 1,
			TracerID:      tracerID,
		},
	}
}

// BigEndian switches the byte order of the rendered file.
func (b *TraceBuilder) BigEndian() *TraceBuilder {
	b.header.ByteOrder = model.BigEndian
	return b
}

// Add appends a packet with an empty body.
func (b *TraceBuilder) Add(thread uint32, begin, end uint64) *TraceBuilder {
	return b.AddSpan(Span{Thread: thread, Begin: begin, End: end, PacketID: 1})
}

// AddSpan appends a fully specified packet.
func (b *TraceBuilder) AddSpan(s Span) *TraceBuilder {
	b.spans = append(b.spans, s)
	return b
}

// WithCorruptTail appends a packet header whose declared size exceeds the
// bytes that follow it.
func (b *TraceBuilder) WithCorruptTail(declaredSize uint32, present int) *TraceBuilder {
	var hdr [model.PacketHeaderSize]byte
	tracefile.EncodePacketHeader(hdr[:], model.PacketHeader{
		Size:        declaredSize,
		PacketID:    1,
		GlobalIndex: uint32(len(b.spans)),
		ThreadID:    1,
	}, tracefile.Order(b.header.ByteOrder))
	b.tail = append(hdr[:], make([]byte, present)...)
	return b
}

// WithRawTail appends arbitrary trailing bytes after the last packet.
func (b *TraceBuilder) WithRawTail(tail []byte) *TraceBuilder {
	b.tail = append([]byte(nil), tail...)
	return b
}

// Bytes renders the trace.
func (b *TraceBuilder) Bytes() []byte {
	var buf bytes.Buffer
	w, err := tracefile.NewWriter(&buf, b.header)
	if err != nil {
		panic(err)
	}
	for _, s := range b.spans {
		if _, err := w.WritePacket(tracefile.Packet{
			PacketID:  s.PacketID,
			ThreadID:  s.Thread,
			BeginTime: s.Begin,
			EndTime:   s.End,
			Body:      s.Body,
		}); err != nil {
			panic(err)
		}
	}
	if err := w.Flush(); err != nil {
		panic(err)
	}
	buf.Write(b.tail)
	return buf.Bytes()
}

// Write renders the trace into a file under t.TempDir and returns its path.
func (b *TraceBuilder) Write(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.trace")
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("write trace fixture: %v", err)
	}
	return path
}

// CallBody encodes a callrecord body: argc, args, result.
func CallBody(result int64, args ...int64) []byte {
	buf := make([]byte, 2+8*len(args)+8)
	binary.LittleEndian.PutUint16(buf, uint16(len(args)))
	off := 2
	for _, a := range args {
		binary.LittleEndian.PutUint64(buf[off:], uint64(a))
		off += 8
	}
	binary.LittleEndian.PutUint64(buf[off:], uint64(result))
	return buf
}

// ScenarioLanes is the two-thread trace used across packages: thread 7 has
// [0,10] [10,20] [25,30], thread 9 has [5,15].
func ScenarioLanes() *TraceBuilder {
	return NewTraceBuilder("callrecord").
		Add(7, 0, 10).
		Add(9, 5, 15).
		Add(7, 10, 20).
		Add(7, 25, 30)
}
