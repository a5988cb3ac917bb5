// Package usb locates and opens the ReSpeaker Mic Array v2.0 over libusb
// (via google/gousb) and exposes the raw control-transfer surface the
// device session drives.
//
// The package deliberately knows nothing about parameters or payload
// layout; it finds the device by VID/PID and logical index, resolves the
// vendor DFU interface (class 0xfe, subclass 0x01) used for resets, and
// hands out bounded-timeout ControlRead/ControlWrite primitives. Timeout
// and retry policy live here and in the caller respectively: every
// transfer gets one attempt with the configured timeout.
//
// A Device can Reopen itself against the same logical index, which the
// session uses after a reset makes the hardware re-enumerate.
package usb
