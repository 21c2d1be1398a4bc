// Package layout splits the terminal into the regions of the timeline
// viewer.
package layout

import (
	"os"

	"golang.org/x/term"

	"github.com/penwyp/go-apitrace/internal/util"
)

const (
	DefaultWidth  = 100
	DefaultHeight = 30
	MinWidth      = 40
	MinHeight     = 8
)

// Sizer measures the terminal.
type Sizer struct {
	fd     int
	logger util.LoggerInterface
}

// NewSizer measures the terminal behind fd, usually os.Stdout.
func NewSizer(fd int, logger util.LoggerInterface) *Sizer {
	return &Sizer{fd: fd, logger: util.OrNop(logger)}
}

// StdoutSizer measures the terminal attached to stdout.
func StdoutSizer(logger util.LoggerInterface) *Sizer {
	return NewSizer(int(os.Stdout.Fd()), logger)
}

// Size returns the terminal size in cells, falling back to
// DefaultWidth x DefaultHeight when fd is not a terminal. The result is
// never below MinWidth x MinHeight.
func (s *Sizer) Size() (width, height int) {
	w, h, err := term.GetSize(s.fd)
	if err != nil || w <= 0 || h <= 0 {
		s.logger.Debugf("terminal size unavailable, using %dx%d: %v", DefaultWidth, DefaultHeight, err)
		return DefaultWidth, DefaultHeight
	}
	return max(w, MinWidth), max(h, MinHeight)
}

// PadString pads s to exactly width cells, truncating when it is wider.
func (s *Sizer) PadString(str string, width int, leftAlign bool) string {
	return util.PadToWidth(str, width, leftAlign)
}
