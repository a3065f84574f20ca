package wire

import "errors"

// ErrMalformed is returned for every decode failure — bad CRC, over-long
// payload, unknown kind, truncated buffer. Per spec.md §4.1, every decode
// failure collapses to this single sentinel: the frame is discarded and a
// counter incremented, never retried.
var ErrMalformed = errors.New("wire: malformed frame")

// DecodeError wraps ErrMalformed with a human-readable reason for logs,
// while still satisfying errors.Is(err, ErrMalformed).
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "wire: malformed frame: " + e.Reason }

func (e *DecodeError) Unwrap() error { return ErrMalformed }

func malformed(reason string) error { return &DecodeError{Reason: reason} }
