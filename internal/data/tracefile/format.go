// Package tracefile encodes and decodes the on-disk trace layout:
// a fixed FileHeader followed by packed packets, each a fixed PacketHeader
// and an opaque body.
package tracefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// Magic identifies a trace file.
var Magic = [4]byte{'A', 'P', 'T', 'R'}

// CurrentVersion is the format version written by Writer.
const CurrentVersion uint16 = 1

var (
	// ErrNotTrace is returned when the file does not start with Magic or is
	// shorter than a file header.
	ErrNotTrace = errors.New("not a trace file")
	// ErrUnsupportedVersion is returned for format versions newer than CurrentVersion.
	ErrUnsupportedVersion = errors.New("unsupported trace format version")
)

// Field offsets inside the file header.
const (
	offMagic         = 0
	offVersion       = 4
	offWordSize      = 6
	offByteOrder     = 7
	offTracerVersion = 8
	offTracerID      = 12
)

// Field offsets inside the packet header.
const (
	offSize        = 0
	offPacketID    = 4
	offGlobalIndex = 6
	offThreadID    = 10
	offBeginTime   = 14
	offEndTime     = 22
)

// Order maps a declared byte order to its encoding/binary implementation.
func Order(o model.ByteOrder) binary.ByteOrder {
	if o == model.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// DecodeFileHeader parses the first model.FileHeaderSize bytes of a trace.
func DecodeFileHeader(buf []byte) (model.FileHeader, error) {
	var h model.FileHeader
	if len(buf) < model.FileHeaderSize {
		return h, fmt.Errorf("%w: header needs %d bytes, have %d", ErrNotTrace, model.FileHeaderSize, len(buf))
	}
	if !bytes.Equal(buf[offMagic:offMagic+4], Magic[:]) {
		return h, fmt.Errorf("%w: bad magic %q", ErrNotTrace, buf[offMagic:offMagic+4])
	}

	h.ByteOrder = model.ByteOrder(buf[offByteOrder])
	if h.ByteOrder != model.LittleEndian && h.ByteOrder != model.BigEndian {
		return h, fmt.Errorf("%w: unknown byte order %d", ErrNotTrace, h.ByteOrder)
	}
	order := Order(h.ByteOrder)

	h.FormatVersion = order.Uint16(buf[offVersion:])
	if h.FormatVersion == 0 || h.FormatVersion > CurrentVersion {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.FormatVersion)
	}
	h.WordSize = buf[offWordSize]
	h.TracerVersion = order.Uint32(buf[offTracerVersion:])

	id := buf[offTracerID : offTracerID+model.TracerIDSize]
	if n := bytes.IndexByte(id, 0); n >= 0 {
		id = id[:n]
	}
	h.TracerID = string(id)
	return h, nil
}

// EncodeFileHeader writes h into dst, which must hold model.FileHeaderSize bytes.
func EncodeFileHeader(dst []byte, h model.FileHeader) error {
	if len(dst) < model.FileHeaderSize {
		return fmt.Errorf("file header buffer too small: %d", len(dst))
	}
	if len(h.TracerID) > model.TracerIDSize {
		return fmt.Errorf("tracer id %q longer than %d bytes", h.TracerID, model.TracerIDSize)
	}
	for i := range dst[:model.FileHeaderSize] {
		dst[i] = 0
	}
	order := Order(h.ByteOrder)
	copy(dst[offMagic:], Magic[:])
	order.PutUint16(dst[offVersion:], h.FormatVersion)
	dst[offWordSize] = h.WordSize
	dst[offByteOrder] = byte(h.ByteOrder)
	order.PutUint32(dst[offTracerVersion:], h.TracerVersion)
	copy(dst[offTracerID:], h.TracerID)
	return nil
}

// DecodePacketHeader parses a packed packet header from buf.
func DecodePacketHeader(buf []byte, order binary.ByteOrder) model.PacketHeader {
	_ = buf[model.PacketHeaderSize-1]
	return model.PacketHeader{
		Size:        order.Uint32(buf[offSize:]),
		PacketID:    order.Uint16(buf[offPacketID:]),
		GlobalIndex: order.Uint32(buf[offGlobalIndex:]),
		ThreadID:    order.Uint32(buf[offThreadID:]),
		BeginTime:   order.Uint64(buf[offBeginTime:]),
		EndTime:     order.Uint64(buf[offEndTime:]),
	}
}

// EncodePacketHeader writes h into dst, which must hold model.PacketHeaderSize bytes.
func EncodePacketHeader(dst []byte, h model.PacketHeader, order binary.ByteOrder) {
	_ = dst[model.PacketHeaderSize-1]
	order.PutUint32(dst[offSize:], h.Size)
	order.PutUint16(dst[offPacketID:], h.PacketID)
	order.PutUint32(dst[offGlobalIndex:], h.GlobalIndex)
	order.PutUint32(dst[offThreadID:], h.ThreadID)
	order.PutUint64(dst[offBeginTime:], h.BeginTime)
	order.PutUint64(dst[offEndTime:], h.EndTime)
}
