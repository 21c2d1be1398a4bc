// Package interaction reads the keyboard and maps keys to viewer actions.
package interaction

import (
	"errors"
	"io"
	"os"
	"sync"
)

// ErrNoTerminal is returned when raw keyboard mode is unavailable.
var ErrNoTerminal = errors.New("raw keyboard mode is not supported on this platform")

// KeyType classifies a key event.
type KeyType int

const (
	KeyChar KeyType = iota
	KeyEscape
	KeyEnter
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
)

// KeyEvent represents a keyboard event. Key is set for KeyChar only.
type KeyEvent struct {
	Key  rune
	Type KeyType
}

// Char builds a KeyChar event.
func Char(r rune) KeyEvent { return KeyEvent{Key: r, Type: KeyChar} }

// KeyboardReader delivers key events from a terminal in raw mode.
type KeyboardReader struct {
	in      io.Reader
	restore func() error
	input   chan KeyEvent
	stop    chan struct{}
	once    sync.Once
}

// NewKeyboardReader switches stdin to raw mode and starts reading it.
func NewKeyboardReader() (*KeyboardReader, error) {
	restore, err := enableRawMode(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	kr := newReader(os.Stdin)
	kr.restore = restore
	go kr.readInput()
	return kr, nil
}

// NewReaderFrom reads key events from r without touching terminal modes.
func NewReaderFrom(r io.Reader) *KeyboardReader {
	kr := newReader(r)
	go kr.readInput()
	return kr
}

func newReader(r io.Reader) *KeyboardReader {
	return &KeyboardReader{
		in:    r,
		input: make(chan KeyEvent, 16),
		stop:  make(chan struct{}),
	}
}

// readInput reads keyboard input until Close or the end of input
func (kr *KeyboardReader) readInput() {
	buf := make([]byte, 8)

	for {
		n, err := kr.in.Read(buf)
		if n > 0 {
			for _, event := range parseInput(buf[:n]) {
				select {
				case kr.input <- event:
				case <-kr.stop:
					return
				}
			}
		}
		if err != nil {
			close(kr.input)
			return
		}
		select {
		case <-kr.stop:
			return
		default:
		}
	}
}

var csiKeys = map[string]KeyType{
	"A":  KeyUp,
	"B":  KeyDown,
	"C":  KeyRight,
	"D":  KeyLeft,
	"H":  KeyHome,
	"F":  KeyEnd,
	"5~": KeyPageUp,
	"6~": KeyPageDown,
	"1~": KeyHome,
	"4~": KeyEnd,
}

// parseInput splits one read into key events. A read holding a single ESC
// is the escape key; ESC [ starts a CSI sequence.
func parseInput(buf []byte) []KeyEvent {
	var events []KeyEvent
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		switch {
		case b == 27:
			if i+1 < len(buf) && buf[i+1] == '[' {
				j := i + 2
				for j < len(buf) && (buf[j] < 0x40 || buf[j] > 0x7e) {
					j++
				}
				if j < len(buf) {
					if t, ok := csiKeys[string(buf[i+2:j+1])]; ok {
						events = append(events, KeyEvent{Type: t})
					}
					i = j
					continue
				}
				return events
			}
			events = append(events, KeyEvent{Type: KeyEscape})
		case b == '\r' || b == '\n':
			events = append(events, KeyEvent{Type: KeyEnter})
		case b == 127 || b == 8:
			events = append(events, KeyEvent{Type: KeyBackspace})
		default:
			events = append(events, Char(rune(b)))
		}
	}
	return events
}

// Events returns the keyboard event channel. It is closed when the input ends.
func (kr *KeyboardReader) Events() <-chan KeyEvent {
	return kr.input
}

// Close stops the reader and restores the terminal.
func (kr *KeyboardReader) Close() error {
	var err error
	kr.once.Do(func() {
		close(kr.stop)
		if kr.restore != nil {
			err = kr.restore()
		}
	})
	return err
}
