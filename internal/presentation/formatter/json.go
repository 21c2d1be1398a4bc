package formatter

import (
	"io"

	"github.com/bytedance/sonic"
)

// JSONFormatter prints rows as an indented JSON array.
type JSONFormatter struct {
	detail bool
}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// WithDetail includes the multi-line decoded text of every row.
func (f *JSONFormatter) WithDetail(detail bool) *JSONFormatter {
	f.detail = detail
	return f
}

type jsonRow struct {
	Row         int    `json:"row"`
	GlobalIndex uint32 `json:"globalIndex"`
	ThreadID    uint32 `json:"threadId"`
	PacketID    uint16 `json:"packetId"`
	Name        string `json:"name"`
	Begin       uint64 `json:"begin"`
	End         uint64 `json:"end"`
	Duration    uint64 `json:"duration"`
	Size        uint32 `json:"size"`
	Malformed   bool   `json:"malformed,omitempty"`
	Summary     string `json:"summary"`
	Detail      string `json:"detail,omitempty"`
}

// FormatRows ignores set.Columns; every field is always present.
func (f *JSONFormatter) FormatRows(w io.Writer, set RowSet) error {
	out := make([]jsonRow, 0, len(set.Rows))
	for _, row := range set.Rows {
		h := set.Source.Header(row)
		text := set.Source.DisplayText(row)
		r := jsonRow{
			Row:         row,
			GlobalIndex: h.GlobalIndex,
			ThreadID:    h.ThreadID,
			PacketID:    h.PacketID,
			Name:        set.Source.Name(row),
			Begin:       h.BeginTime,
			End:         h.EndTime,
			Duration:    h.Duration(),
			Size:        h.Size,
			Malformed:   !h.WellFormed(),
			Summary:     text.Short,
		}
		if f.detail {
			r.Detail = text.Multiline
		}
		out = append(out, r)
	}
	return WriteJSON(w, out)
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
