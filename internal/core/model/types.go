package model

import "fmt"

// FileHeaderSize is the encoded size of FileHeader in bytes.
const FileHeaderSize = 48

// PacketHeaderSize is the encoded size of PacketHeader in bytes.
const PacketHeaderSize = 30

// TracerIDSize is the fixed width of the tracer identifier field.
const TracerIDSize = 32

// ByteOrder identifies the byte order of multi-byte fields in a trace file.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	default:
		return fmt.Sprintf("byte-order(%d)", uint8(o))
	}
}

// FileHeader is the fixed prologue of a trace file.
type FileHeader struct {
	FormatVersion uint16    `json:"formatVersion"`
	WordSize      uint8     `json:"wordSize"`
	ByteOrder     ByteOrder `json:"byteOrder"`
	TracerVersion uint32    `json:"tracerVersion"`
	TracerID      string    `json:"tracerId"`
}

// PacketHeader is the fixed-size prefix of every packet.
type PacketHeader struct {
	Size        uint32 `json:"size"` // total bytes including the header
	PacketID    uint16 `json:"packetId"`
	GlobalIndex uint32 `json:"globalIndex"`
	ThreadID    uint32 `json:"threadId"`
	BeginTime   uint64 `json:"beginTime"`
	EndTime     uint64 `json:"endTime"`
}

// BodySize returns the number of payload bytes following the header.
func (h PacketHeader) BodySize() uint32 {
	if h.Size < PacketHeaderSize {
		return 0
	}
	return h.Size - PacketHeaderSize
}

// WellFormed reports whether the packet's time interval is ordered.
func (h PacketHeader) WellFormed() bool {
	return h.EndTime >= h.BeginTime
}

// Duration returns EndTime-BeginTime, or 0 for malformed intervals.
func (h PacketHeader) Duration() uint64 {
	if !h.WellFormed() {
		return 0
	}
	return h.EndTime - h.BeginTime
}

// PacketRecord locates one packet inside the trace file.
type PacketRecord struct {
	FileOffset uint64       `json:"fileOffset"`
	Header     PacketHeader `json:"header"`
}

// BodyOffset returns the file offset of the first payload byte.
func (r PacketRecord) BodyOffset() uint64 {
	return r.FileOffset + PacketHeaderSize
}

// TimeRange is a closed interval of ticks.
type TimeRange struct {
	Begin uint64 `json:"begin"`
	End   uint64 `json:"end"`
}

// Duration returns End-Begin, never less than zero.
func (r TimeRange) Duration() uint64 {
	if r.End < r.Begin {
		return 0
	}
	return r.End - r.Begin
}

// Contains reports whether t lies inside the range.
func (r TimeRange) Contains(t uint64) bool {
	return t >= r.Begin && t <= r.End
}

// DisplayText is the decoded, human-readable form of a packet.
type DisplayText struct {
	Short     string `json:"short"`
	Multiline string `json:"multiline"`
}
