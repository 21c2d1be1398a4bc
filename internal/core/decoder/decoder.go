// Package decoder turns packet bodies into display text.
//
// The trace engine never picks a decoder itself. Hosts resolve one from a
// Registry by the tracer id recorded in the file header and hand it to the
// row model.
package decoder

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/penwyp/go-apitrace/internal/core/model"
)

// PacketDecoder interprets packet bodies. Implementations must be pure:
// the same header and body always produce the same text, and nothing is
// retained between calls.
type PacketDecoder interface {
	Decode(h model.PacketHeader, body []byte) model.DisplayText
	NameOf(packetID uint16) string
}

// Factory builds a decoder for a specific trace. The file header carries
// the byte order and word size the decoder must honour.
type Factory func(fh model.FileHeader) (PacketDecoder, error)

// ErrNoDecoder is returned by Resolve for tracer ids nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

// Registry maps tracer ids to decoder factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry with the built-in callrecord and raw decoders.
func Default() *Registry {
	r := NewRegistry()
	r.Register(CallRecordID, CallRecordFactory(nil))
	r.Register(RawID, RawFactory)
	return r
}

// Register installs f for id, replacing any previous factory.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
}

// Resolve builds the decoder registered for fh.TracerID.
func (r *Registry) Resolve(fh model.FileHeader) (PacketDecoder, error) {
	return r.ResolveAs(fh.TracerID, fh)
}

// ResolveAs builds the decoder registered under id for the trace described
// by fh, regardless of the tracer id the file declares.
func (r *Registry) ResolveAs(id string, fh model.FileHeader) (PacketDecoder, error) {
	r.mu.RLock()
	f, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for tracer %q", ErrNoDecoder, id)
	}
	d, err := f(fh)
	if err != nil {
		return nil, fmt.Errorf("create %q decoder: %w", id, err)
	}
	return d, nil
}

// IDs lists registered tracer ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fallback is the text shown for packets when no decoder is available.
func Fallback(h model.PacketHeader) model.DisplayText {
	text := FallbackName(h.PacketID)
	return model.DisplayText{Short: text, Multiline: text}
}

// FallbackName names a packet id nobody can decode.
func FallbackName(packetID uint16) string {
	return fmt.Sprintf("(unknown packet id %d)", packetID)
}
