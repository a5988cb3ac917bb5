package usb

import "errors"

// Transport errors.
//
// Transfer failures coming out of libusb are wrapped with ErrTransport, so
// callers can treat "the device is unreachable" uniformly with errors.Is
// while logs keep the specific cause.
var (
	// ErrTransport wraps every failed control transfer.
	ErrTransport = errors.New("usb: transport error")

	// ErrNoDevice is returned when no ReSpeaker is attached.
	ErrNoDevice = errors.New("usb: no ReSpeaker Mic Array v2.0 found")

	// ErrMultipleDevices is returned when several arrays are attached and
	// no index was given to pick one.
	ErrMultipleDevices = errors.New("usb: multiple devices found, specify a device index")

	// ErrIndexOutOfRange is returned when the requested device index
	// exceeds the number of attached arrays.
	ErrIndexOutOfRange = errors.New("usb: device index out of range")

	// ErrNoDFUInterface is returned when the vendor DFU interface
	// (class 0xfe, subclass 0x01) is missing from the descriptors.
	ErrNoDFUInterface = errors.New("usb: vendor DFU interface not found")

	// ErrClosed is returned when a transfer is attempted on a closed handle.
	ErrClosed = errors.New("usb: device handle closed")
)
