package decoder

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// RawID is the tracer id of the hex dump decoder.
const RawID = "raw"

const rawPreviewBytes = 16

// RawFactory builds a decoder that shows bodies as hex.
func RawFactory(model.FileHeader) (PacketDecoder, error) {
	return rawDecoder{}, nil
}

type rawDecoder struct{}

func (rawDecoder) NameOf(packetID uint16) string {
	return fmt.Sprintf("packet#%d", packetID)
}

func (d rawDecoder) Decode(h model.PacketHeader, body []byte) model.DisplayText {
	preview := body
	ellipsis := ""
	if len(preview) > rawPreviewBytes {
		preview = preview[:rawPreviewBytes]
		ellipsis = "…"
	}
	short := fmt.Sprintf("%s [%d bytes] %s%s", d.NameOf(h.PacketID), len(body), hex.EncodeToString(preview), ellipsis)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nthread %d  [%d, %d]\n", d.NameOf(h.PacketID), h.ThreadID, h.BeginTime, h.EndTime)
	sb.WriteString(strings.TrimRight(hex.Dump(body), "\n"))
	return model.DisplayText{Short: short, Multiline: sb.String()}
}
