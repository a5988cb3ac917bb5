package protocol

import (
	"errors"
	"fmt"

	"github.com/brookman/respeaker-go/internal/param"
)

// Protocol errors.
//
// Validation errors are rejected before any transport I/O and are always
// recoverable by supplying a corrected value. They can be checked with
// errors.Is():
//
//	if errors.Is(err, protocol.ErrOutOfRange) { ... }
var (
	// ErrTypeMismatch is returned when a Value's tag does not match the
	// parameter's declared domain.
	ErrTypeMismatch = errors.New("protocol: value type mismatch")

	// ErrOutOfRange is returned when a write value lies outside the
	// parameter's [min, max]. The concrete error is a *RangeError
	// carrying the bounds.
	ErrOutOfRange = errors.New("protocol: value out of range")

	// ErrReadOnly is returned when a write targets a read-only parameter.
	ErrReadOnly = errors.New("protocol: parameter is read-only")

	// ErrShortResponse is returned when a read response is shorter than
	// the 8 bytes the wire format requires.
	ErrShortResponse = errors.New("protocol: response shorter than 8 bytes")
)

// RangeError reports a write value outside a parameter's range.
// It matches ErrOutOfRange under errors.Is.
type RangeError struct {
	Kind   param.Kind
	Min    float64
	Max    float64
	Actual float64
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("protocol: value %v for %s not in range %v..%v", e.Actual, e.Kind, e.Min, e.Max)
}

// Is makes RangeError match the ErrOutOfRange sentinel.
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}
