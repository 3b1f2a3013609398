package rip

import (
	"errors"
	"fmt"
)

// Failure classes for a stream pass. Decoder failures surface as
// ErrMalformedStream; ErrInvalidRegisterTarget marks an internal mismatch
// between decoder and chip model rather than bad input.
var (
	ErrMalformedStream       = errors.New("malformed command stream")
	ErrTruncatedDataBlock    = errors.New("truncated data block")
	ErrInvalidRegisterTarget = errors.New("invalid register target")
)

// StreamError carries the position at which a pass failed. The wrapped
// error matches one of the failure classes via errors.Is.
type StreamError struct {
	Tick   uint64 // stream time at the failure, 44100Hz ticks
	Offset int    // absolute byte offset of the failing command
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("at tick %d (byte 0x%X): %v", e.Tick, e.Offset, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
