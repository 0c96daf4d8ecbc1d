package binio

import (
	"fmt"

	"github.com/pkg/errors"
)

// Cursor errors.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrIndexOutOfRange  = errors.New("index out of range for width")
	ErrInvalidWidth     = errors.New("invalid index width")
	// ErrEncoding marks a lossy text conversion. Reads and writes never fail
	// with it; conversions are counted instead (see Reader.LossyStrings).
	ErrEncoding = errors.New("lossy text conversion")
)

// InsufficientDataError reports a read past the end of the buffer.
type InsufficientDataError struct {
	Offset    int // cursor position when the read was attempted
	Requested int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data at offset %d: need %d bytes, have %d",
		e.Offset, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientData) match.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
