package tracefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeaderLayout(t *testing.T) {
	h := model.FileHeader{
		FormatVersion: 1,
		WordSize:      8,
		ByteOrder:     model.BigEndian,
		TracerVersion: 0x01020304,
		TracerID:      "callrecord",
	}
	var buf [model.FileHeaderSize]byte
	require.NoError(t, EncodeFileHeader(buf[:], h))

	assert.Equal(t, []byte("APTR"), buf[0:4])
	assert.Equal(t, []byte{0x00, 0x01}, buf[4:6], "version is big-endian as declared")
	assert.Equal(t, byte(8), buf[6])
	assert.Equal(t, byte(1), buf[7])
	assert.Equal(t, []byte{1, 2, 3, 4}, buf[8:12])
	assert.Equal(t, "callrecord", string(buf[12:22]))
	assert.Equal(t, byte(0), buf[22], "tracer id is NUL padded")

	decoded, err := DecodeFileHeader(buf[:])
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestDecodeFileHeaderErrors(t *testing.T) {
	valid := make([]byte, model.FileHeaderSize)
	require.NoError(t, EncodeFileHeader(valid, model.FileHeader{FormatVersion: 1, TracerID: "x"}))

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"short", func(b []byte) []byte { return b[:10] }, ErrNotTrace},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrNotTrace},
		{"bad byte order", func(b []byte) []byte { b[7] = 9; return b }, ErrNotTrace},
		{"future version", func(b []byte) []byte { b[4] = 0x7f; return b }, ErrUnsupportedVersion},
		{"zero version", func(b []byte) []byte { b[4], b[5] = 0, 0; return b }, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte(nil), valid...)
			_, err := DecodeFileHeader(tt.mutate(buf))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestEncodeFileHeaderRejectsLongTracerID(t *testing.T) {
	var buf [model.FileHeaderSize]byte
	err := EncodeFileHeader(buf[:], model.FileHeader{TracerID: string(bytes.Repeat([]byte("a"), 33))})
	assert.Error(t, err)
}

func TestPacketHeaderLayout(t *testing.T) {
	h := model.PacketHeader{
		Size:        42,
		PacketID:    7,
		GlobalIndex: 3,
		ThreadID:    9,
		BeginTime:   100,
		EndTime:     250,
	}
	var buf [model.PacketHeaderSize]byte
	EncodePacketHeader(buf[:], h, binary.LittleEndian)

	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, uint16(7), binary.LittleEndian.Uint16(buf[4:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[6:]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(buf[10:]))
	assert.Equal(t, uint64(100), binary.LittleEndian.Uint64(buf[14:]))
	assert.Equal(t, uint64(250), binary.LittleEndian.Uint64(buf[22:]))

	assert.Equal(t, h, DecodePacketHeader(buf[:], binary.LittleEndian))
}

func TestWriterAssignsIndicesAndOffsets(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(&out, model.FileHeader{TracerID: "callrecord"})
	require.NoError(t, err)

	off0, err := w.WritePacket(Packet{PacketID: 1, ThreadID: 7, BeginTime: 0, EndTime: 10, Body: []byte{1, 2}})
	require.NoError(t, err)
	off1, err := w.WritePacket(Packet{PacketID: 2, ThreadID: 7, BeginTime: 10, EndTime: 20})
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	assert.Equal(t, uint64(model.FileHeaderSize), off0)
	assert.Equal(t, uint64(model.FileHeaderSize+model.PacketHeaderSize+2), off1)
	assert.Equal(t, int64(out.Len()), w.Written())

	data := out.Bytes()
	fh, err := DecodeFileHeader(data)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, fh.FormatVersion)
	assert.Equal(t, uint8(8), fh.WordSize)

	second := DecodePacketHeader(data[off1:], binary.LittleEndian)
	assert.Equal(t, uint32(1), second.GlobalIndex)
	assert.Equal(t, uint32(model.PacketHeaderSize), second.Size)
}
