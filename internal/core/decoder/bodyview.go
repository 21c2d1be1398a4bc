package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when an accessor would read past the body.
var ErrOutOfBounds = errors.New("read past end of packet body")

// BodyView reads typed fields from a packet body without ever indexing
// outside it.
type BodyView struct {
	buf   []byte
	order binary.ByteOrder
	pos   int
}

// NewBodyView wraps body. A nil order means little-endian.
func NewBodyView(body []byte, order binary.ByteOrder) *BodyView {
	if order == nil {
		order = binary.LittleEndian
	}
	return &BodyView{buf: body, order: order}
}

// Len returns the body length.
func (v *BodyView) Len() int { return len(v.buf) }

// Pos returns the cursor position used by the sequential readers.
func (v *BodyView) Pos() int { return v.pos }

// Remaining returns the bytes left after the cursor.
func (v *BodyView) Remaining() int { return len(v.buf) - v.pos }

func (v *BodyView) span(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off > len(v.buf)-n {
		return nil, fmt.Errorf("%w: %d bytes at %d, body is %d", ErrOutOfBounds, n, off, len(v.buf))
	}
	return v.buf[off : off+n], nil
}

// Uint16 reads a uint16 at off.
func (v *BodyView) Uint16(off int) (uint16, error) {
	b, err := v.span(off, 2)
	if err != nil {
		return 0, err
	}
	return v.order.Uint16(b), nil
}

// Uint32 reads a uint32 at off.
func (v *BodyView) Uint32(off int) (uint32, error) {
	b, err := v.span(off, 4)
	if err != nil {
		return 0, err
	}
	return v.order.Uint32(b), nil
}

// Uint64 reads a uint64 at off.
func (v *BodyView) Uint64(off int) (uint64, error) {
	b, err := v.span(off, 8)
	if err != nil {
		return 0, err
	}
	return v.order.Uint64(b), nil
}

// Int64 reads a two's complement int64 at off.
func (v *BodyView) Int64(off int) (int64, error) {
	u, err := v.Uint64(off)
	return int64(u), err
}

// Bytes returns n bytes at off. The slice aliases the body.
func (v *BodyView) Bytes(off, n int) ([]byte, error) {
	return v.span(off, n)
}

// String returns n bytes at off as a string, cut at the first NUL.
func (v *BodyView) String(off, n int) (string, error) {
	b, err := v.span(off, n)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			b = b[:i]
			break
		}
	}
	return string(b), nil
}

// ReadUint16 reads a uint16 at the cursor and advances it.
func (v *BodyView) ReadUint16() (uint16, error) {
	x, err := v.Uint16(v.pos)
	if err == nil {
		v.pos += 2
	}
	return x, err
}

// ReadInt64 reads an int64 at the cursor and advances it.
func (v *BodyView) ReadInt64() (int64, error) {
	x, err := v.Int64(v.pos)
	if err == nil {
		v.pos += 8
	}
	return x, err
}
