package index

import (
	"errors"
	"fmt"
)

// ErrRowOutOfRange is returned by Body for rows outside [0, Len()).
var ErrRowOutOfRange = errors.New("row out of range")

// IOError reports an open, seek or read failure. It is always fatal for
// Build.
type IOError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
