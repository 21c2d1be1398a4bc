package tracefile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// Writer appends packets to a trace stream.
type Writer struct {
	w       *bufio.Writer
	order   binary.ByteOrder
	next    uint32
	written int64
	hdr     [model.PacketHeaderSize]byte
}

// NewWriter writes the file header and returns a Writer positioned at the
// first packet.
func NewWriter(w io.Writer, h model.FileHeader) (*Writer, error) {
	if h.FormatVersion == 0 {
		h.FormatVersion = CurrentVersion
	}
	if h.WordSize == 0 {
		h.WordSize = 8
	}

	var buf [model.FileHeaderSize]byte
	if err := EncodeFileHeader(buf[:], h); err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(buf[:]); err != nil {
		return nil, err
	}
	return &Writer{
		w:       bw,
		order:   Order(h.ByteOrder),
		written: model.FileHeaderSize,
	}, nil
}

// Packet describes one packet to append. GlobalIndex is assigned by the
// Writer.
type Packet struct {
	PacketID  uint16
	ThreadID  uint32
	BeginTime uint64
	EndTime   uint64
	Body      []byte
}

// WritePacket appends p and returns the file offset it was written at.
func (w *Writer) WritePacket(p Packet) (uint64, error) {
	total := uint64(model.PacketHeaderSize) + uint64(len(p.Body))
	if total > math.MaxUint32 {
		return 0, fmt.Errorf("packet body of %d bytes exceeds format limit", len(p.Body))
	}
	return w.WriteRaw(model.PacketHeader{
		Size:        uint32(total),
		PacketID:    p.PacketID,
		GlobalIndex: w.next,
		ThreadID:    p.ThreadID,
		BeginTime:   p.BeginTime,
		EndTime:     p.EndTime,
	}, p.Body)
}

// WriteRaw appends a header exactly as given followed by body. It does not
// check that h.Size matches the body length, which lets callers produce
// damaged files.
func (w *Writer) WriteRaw(h model.PacketHeader, body []byte) (uint64, error) {
	offset := uint64(w.written)
	EncodePacketHeader(w.hdr[:], h, w.order)
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return 0, err
	}
	if _, err := w.w.Write(body); err != nil {
		return 0, err
	}
	w.written += int64(model.PacketHeaderSize + len(body))
	w.next = h.GlobalIndex + 1
	return offset, nil
}

// Written returns the number of bytes written so far, header included.
func (w *Writer) Written() int64 { return w.written }

// Flush flushes buffered data to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }
