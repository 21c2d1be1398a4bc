package decoder

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/testing/fixtures"
)

func TestRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"callrecord", "raw"}, r.IDs())

	d, err := r.Resolve(model.FileHeader{TracerID: "callrecord"})
	require.NoError(t, err)
	assert.Equal(t, "glDrawArrays", d.NameOf(3))

	_, err = r.Resolve(model.FileHeader{TracerID: "vulkan"})
	assert.ErrorIs(t, err, ErrNoDecoder)

	d, err = r.ResolveAs("raw", model.FileHeader{TracerID: "vulkan"})
	require.NoError(t, err)
	assert.Equal(t, "packet#3", d.NameOf(3))

	r.Register("callrecord", CallRecordFactory(map[uint16]string{3: "vkCmdDraw"}))
	d, err = r.Resolve(model.FileHeader{TracerID: "callrecord"})
	require.NoError(t, err)
	assert.Equal(t, "vkCmdDraw", d.NameOf(3))
	assert.Equal(t, "(unknown packet id 4)", d.NameOf(4))
}

func TestFallback(t *testing.T) {
	text := Fallback(model.PacketHeader{PacketID: 42})
	assert.Equal(t, "(unknown packet id 42)", text.Short)
	assert.Equal(t, text.Short, text.Multiline)
}

func TestBodyViewBounds(t *testing.T) {
	body := []byte{1, 0, 2, 0, 0, 0, 'h', 'i', 0, 'x'}
	v := NewBodyView(body, nil)

	u16, err := v.Uint16(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), u16)

	u32, err := v.Uint32(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), u32)

	s, err := v.String(6, 4)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	tests := []struct {
		name string
		read func() error
	}{
		{"uint64 past end", func() error { _, err := v.Uint64(4); return err }},
		{"uint32 at end", func() error { _, err := v.Uint32(8); return err }},
		{"negative offset", func() error { _, err := v.Uint16(-1); return err }},
		{"bytes too long", func() error { _, err := v.Bytes(0, 11); return err }},
		{"negative length", func() error { _, err := v.Bytes(0, -1); return err }},
		{"offset beyond body", func() error { _, err := v.Bytes(11, 0); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.read(), ErrOutOfBounds)
		})
	}

	b, err := v.Bytes(10, 0)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestBodyViewBigEndianCursor(t *testing.T) {
	body := make([]byte, 10)
	binary.BigEndian.PutUint16(body, 7)
	binary.BigEndian.PutUint64(body[2:], uint64(0xFFFFFFFFFFFFFFFF))
	v := NewBodyView(body, binary.BigEndian)

	n, err := v.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), n)
	x, err := v.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), x)
	assert.Equal(t, 0, v.Remaining())

	_, err = v.ReadInt64()
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, 10, v.Pos(), "failed reads leave the cursor alone")
}

func TestCallRecordDecode(t *testing.T) {
	d, err := CallRecordFactory(nil)(model.FileHeader{})
	require.NoError(t, err)
	h := model.PacketHeader{PacketID: 3, ThreadID: 7, BeginTime: 10, EndTime: 20}

	tests := []struct {
		name      string
		body      []byte
		wantShort string
	}{
		{"no args", fixtures.CallBody(0), "glDrawArrays() = 0"},
		{"three args", fixtures.CallBody(-1, 4, 0, 36), "glDrawArrays(4, 0, 36) = -1"},
		{"empty body", nil, "glDrawArrays(<read past end of packet body: 2 bytes at 0, body is 0>)"},
		{"truncated args", fixtures.CallBody(0, 1, 2)[:12], "glDrawArrays(<read past end of packet body: 8 bytes at 10, body is 12>)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := d.Decode(h, tt.body)
			assert.Equal(t, tt.wantShort, text.Short)
			assert.Contains(t, text.Multiline, "thread 7  [10, 20]")
		})
	}

	t.Run("argument count cap", func(t *testing.T) {
		body := make([]byte, 2)
		binary.LittleEndian.PutUint16(body, 1000)
		assert.Contains(t, d.Decode(h, body).Short, "exceeds")
	})
}

func TestDecodersArePure(t *testing.T) {
	body := fixtures.CallBody(5, 1, 2, 3)
	original := append([]byte(nil), body...)
	h := model.PacketHeader{PacketID: 1, ThreadID: 1, BeginTime: 1, EndTime: 2}

	reg := Default()
	for _, id := range reg.IDs() {
		t.Run(id, func(t *testing.T) {
			d, err := reg.ResolveAs(id, model.FileHeader{})
			require.NoError(t, err)
			first := d.Decode(h, body)
			for i := 0; i < 5; i++ {
				assert.Equal(t, first, d.Decode(h, body))
			}
			assert.Equal(t, original, body, "decode must not modify the body")
		})
	}
}

func TestRawDecode(t *testing.T) {
	d, err := RawFactory(model.FileHeader{})
	require.NoError(t, err)

	text := d.Decode(model.PacketHeader{PacketID: 2}, []byte{0xde, 0xad})
	assert.Equal(t, "packet#2 [2 bytes] dead", text.Short)
	assert.Contains(t, text.Multiline, "de ad")

	long := make([]byte, 20)
	assert.Contains(t, d.Decode(model.PacketHeader{}, long).Short, "…")
}

func TestEncodeCallRecord(t *testing.T) {
	for _, order := range []model.ByteOrder{model.LittleEndian, model.BigEndian} {
		d, err := CallRecordFactory(nil)(model.FileHeader{ByteOrder: order})
		require.NoError(t, err)
		text := d.Decode(model.PacketHeader{PacketID: 4}, EncodeCallRecord(order, -1, 7, 1<<40))
		assert.Equal(t, "glDrawElements(7, 1099511627776) = -1", text.Short, order.String())
	}
	assert.Equal(t, fixtures.CallBody(0, 4, 0, 36), EncodeCallRecord(model.LittleEndian, 0, 4, 0, 36))
}
