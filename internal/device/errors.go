package device

import "errors"

// Session errors.
//
// Validation and protocol errors pass through from internal/protocol and
// internal/usb unchanged; these are the session's own failure modes.
var (
	// ErrResetInFlight is returned by Read and Write while a reset is in
	// progress. Callers should retry after the device has settled.
	ErrResetInFlight = errors.New("device: reset in flight")

	// ErrSessionClosed is returned once Close has been called.
	ErrSessionClosed = errors.New("device: session closed")
)
