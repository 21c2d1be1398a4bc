package decoder

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/data/tracefile"
)

// CallRecordID is the tracer id of the built-in call record format.
const CallRecordID = "callrecord"

// maxCallArgs caps the argument count accepted from a body.
const maxCallArgs = 64

// DefaultCallNames names the packet ids emitted by the reference tracer.
var DefaultCallNames = map[uint16]string{
	1: "glBegin",
	2: "glEnd",
	3: "glDrawArrays",
	4: "glDrawElements",
	5: "glBindTexture",
	6: "glClear",
	7: "glFlush",
	8: "SwapBuffers",
}

// CallRecordFactory returns a factory for call record decoders. A nil
// names table selects DefaultCallNames.
func CallRecordFactory(names map[uint16]string) Factory {
	if names == nil {
		names = DefaultCallNames
	}
	table := make(map[uint16]string, len(names))
	for id, name := range names {
		table[id] = name
	}
	return func(fh model.FileHeader) (PacketDecoder, error) {
		return &callRecordDecoder{names: table, order: fh.ByteOrder}, nil
	}
}

// callRecordDecoder decodes bodies laid out as argc u16, argc int64
// arguments, then an int64 result.
type callRecordDecoder struct {
	names map[uint16]string
	order model.ByteOrder
}

func (d *callRecordDecoder) NameOf(packetID uint16) string {
	if name, ok := d.names[packetID]; ok {
		return name
	}
	return FallbackName(packetID)
}

func (d *callRecordDecoder) Decode(h model.PacketHeader, body []byte) model.DisplayText {
	name := d.NameOf(h.PacketID)
	args, result, err := d.parse(body)
	if err != nil {
		short := fmt.Sprintf("%s(<%v>)", name, err)
		return model.DisplayText{
			Short:     short,
			Multiline: fmt.Sprintf("%s\nthread %d  [%d, %d]\nbody: %d bytes, undecodable: %v", name, h.ThreadID, h.BeginTime, h.EndTime, len(body), err),
		}
	}

	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%d", a)
	}
	short := fmt.Sprintf("%s(%s) = %d", name, strings.Join(parts, ", "), result)

	var sb strings.Builder
	sb.WriteString(name)
	fmt.Fprintf(&sb, "\nthread %d  [%d, %d]", h.ThreadID, h.BeginTime, h.EndTime)
	for i, a := range args {
		fmt.Fprintf(&sb, "\n  arg%d = %d (%#x)", i, a, uint64(a))
	}
	fmt.Fprintf(&sb, "\n  result = %d", result)
	return model.DisplayText{Short: short, Multiline: sb.String()}
}

func (d *callRecordDecoder) parse(body []byte) ([]int64, int64, error) {
	v := NewBodyView(body, tracefile.Order(d.order))
	argc, err := v.ReadUint16()
	if err != nil {
		return nil, 0, err
	}
	if argc > maxCallArgs {
		return nil, 0, fmt.Errorf("argument count %d exceeds %d", argc, maxCallArgs)
	}
	args := make([]int64, argc)
	for i := range args {
		if args[i], err = v.ReadInt64(); err != nil {
			return nil, 0, err
		}
	}
	result, err := v.ReadInt64()
	if err != nil {
		return nil, 0, err
	}
	return args, result, nil
}

// EncodeCallRecord lays out a call record body in the given byte order.
func EncodeCallRecord(order model.ByteOrder, result int64, args ...int64) []byte {
	bo := tracefile.Order(order)
	buf := make([]byte, 2+8*len(args)+8)
	bo.PutUint16(buf, uint16(len(args)))
	off := 2
	for _, a := range args {
		bo.PutUint64(buf[off:], uint64(a))
		off += 8
	}
	bo.PutUint64(buf[off:], uint64(result))
	return buf
}
