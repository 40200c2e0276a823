package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrStartByteMismatch indicates a binary frame doesn't begin with StartByte.
	ErrStartByteMismatch = errors.New("start byte mismatch")
	// ErrEndByteMismatch indicates the byte after the payload isn't EndByte.
	ErrEndByteMismatch = errors.New("end byte mismatch")
	// ErrChecksumMismatch indicates the XOR of payload differs from the
	// declared checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrLengthOverflow indicates the declared payload length doesn't fit
	// into the line buffer.
	ErrLengthOverflow = errors.New("length overflow")
	// ErrIncompleteFrame indicates the stream ended before a frame completed.
	ErrIncompleteFrame = errors.New("incomplete frame")

	// ErrBufferFull indicates a write beyond the capacity of LineBuffer.
	ErrBufferFull = errors.New("line buffer full")

	// ErrAttemptTimeout indicates a single command attempt received no
	// acknowledgement in time. It triggers a retry.
	ErrAttemptTimeout = errors.New("no acknowledgement")
	// ErrExhausted indicates all attempts of a command failed.
	ErrExhausted = errors.New("retries exhausted")
)

// FrameError describes a rejected binary frame.
type FrameError struct {
	Err      error
	Expected int
	Actual   int
}

// Error implements error.
func (e *FrameError) Error() string {
	switch e.Err {
	case ErrLengthOverflow:
		return fmt.Sprintf("binary frame: %v: length %d exceeds %d", e.Err, e.Actual, e.Expected)
	case ErrIncompleteFrame:
		return "binary frame: " + e.Err.Error()
	}
	return fmt.Sprintf("binary frame: %v: expect 0x%02x, actual 0x%02x", e.Err, e.Expected, e.Actual)
}

// Unwrap returns the underlying sentinel error.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// CommandError is returned when a command can't be completed.
type CommandError struct {
	Name     string
	Attempts int
	Err      error
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed after %d attempt(s): %v", e.Name, e.Attempts, e.Err)
}

// Unwrap returns the cause, e.g. ErrExhausted or context.Canceled.
func (e *CommandError) Unwrap() error {
	return e.Err
}
