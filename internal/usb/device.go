package usb

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Device identity and interface constants for the ReSpeaker Mic Array v2.0.
const (
	// VendorID is the Seeed Technology USB vendor ID.
	VendorID = 0x2886
	// ProductID is the Mic Array v2.0 product ID.
	ProductID = 0x0018

	// dfuClass and dfuSubClass identify the XMOS vendor DFU interface
	// used for the reset control path.
	dfuClass    = 0xfe
	dfuSubClass = 0x01
)

// Control transfer request types (bmRequestType).
const (
	// VendorRead is a vendor-scoped IN transfer to the device.
	VendorRead = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice
	// VendorWrite is a vendor-scoped OUT transfer to the device.
	VendorWrite = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
	// ClassInterfaceWrite is a class-scoped OUT transfer to an interface,
	// used for the DFU reset command.
	ClassInterfaceWrite = gousb.ControlOut | gousb.ControlClass | gousb.ControlInterface
)

// Device is an open handle to one Mic Array, addressed by its logical
// index among all attached arrays. It owns the libusb context and the
// claimed-interface state for resets.
//
// Thread Safety:
//   - Methods are safe for concurrent use; transfers are serialised by
//     the caller (the device session holds a transport lock), claim state
//     is guarded here.
type Device struct {
	index    int
	timeout  time.Duration
	ifaceNum int

	mu    sync.Mutex
	ctx   *gousb.Context
	dev   *gousb.Device
	cfg   *gousb.Config
	iface *gousb.Interface
}

// Open finds the Mic Array with the given logical index and opens it.
//
// index semantics follow the CLI: a negative index means "the only attached
// array"; with several arrays attached a concrete index is required.
//
// Parameters:
//   - index: logical device index, or negative for auto-selection
//   - timeout: per-transfer control timeout
//
// Returns:
//   - *Device: open handle with the DFU interface number resolved
//   - error: ErrNoDevice, ErrMultipleDevices, ErrIndexOutOfRange,
//     ErrNoDFUInterface, or a wrapped libusb failure
func Open(index int, timeout time.Duration) (*Device, error) {
	ctx := gousb.NewContext()
	d := &Device{index: index, timeout: timeout, ctx: ctx}
	if err := d.open(); err != nil {
		ctx.Close()
		return nil, err
	}
	return d, nil
}

// open locates and opens the array, storing handle and interface number.
// Caller must hold no locks; used by Open and Reopen.
func (d *Device) open() error {
	devs, err := d.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(VendorID) && desc.Product == gousb.ID(ProductID)
	})
	if err != nil {
		// OpenDevices returns the devices it did open alongside the error.
		for _, dev := range devs {
			dev.Close()
		}
		return fmt.Errorf("%w: enumerating devices: %w", ErrTransport, err)
	}

	if len(devs) == 0 {
		return ErrNoDevice
	}

	idx := d.index
	if idx < 0 {
		if len(devs) > 1 {
			for _, dev := range devs {
				dev.Close()
			}
			return fmt.Errorf("%w: %d attached", ErrMultipleDevices, len(devs))
		}
		idx = 0
	}
	if idx >= len(devs) {
		for _, dev := range devs {
			dev.Close()
		}
		return fmt.Errorf("%w: index %d but %d devices found", ErrIndexOutOfRange, idx, len(devs))
	}

	// Close the arrays we are not using.
	for i, dev := range devs {
		if i != idx {
			dev.Close()
		}
	}
	dev := devs[idx]

	ifaceNum, err := findDFUInterface(dev.Desc)
	if err != nil {
		dev.Close()
		return err
	}

	// The audio function is usually bound to a kernel driver; detach it
	// transparently when we claim an interface.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		return fmt.Errorf("%w: auto-detach: %w", ErrTransport, err)
	}
	dev.ControlTimeout = d.timeout

	d.mu.Lock()
	d.dev = dev
	d.ifaceNum = ifaceNum
	d.mu.Unlock()
	return nil
}

// findDFUInterface scans the configuration descriptors for the vendor DFU
// interface the reset command targets.
func findDFUInterface(desc *gousb.DeviceDesc) (int, error) {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == dfuClass && alt.SubClass == dfuSubClass {
					return intf.Number, nil
				}
			}
		}
	}
	return 0, ErrNoDFUInterface
}

// ControlRead issues one IN control transfer and reports the byte count.
func (d *Device) ControlRead(requestType, request uint8, value, index uint16, buf []byte) (int, error) {
	d.mu.Lock()
	dev := d.dev
	d.mu.Unlock()
	if dev == nil {
		return 0, ErrClosed
	}

	n, err := dev.Control(requestType, request, value, index, buf)
	if err != nil {
		return n, fmt.Errorf("%w: control read: %w", ErrTransport, err)
	}
	return n, nil
}

// ControlWrite issues one OUT control transfer and reports the byte count.
func (d *Device) ControlWrite(requestType, request uint8, value, index uint16, payload []byte) (int, error) {
	d.mu.Lock()
	dev := d.dev
	d.mu.Unlock()
	if dev == nil {
		return 0, ErrClosed
	}

	n, err := dev.Control(requestType, request, value, index, payload)
	if err != nil {
		return n, fmt.Errorf("%w: control write: %w", ErrTransport, err)
	}
	return n, nil
}

// InterfaceNumber returns the DFU interface number resolved at open.
func (d *Device) InterfaceNumber() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint8(d.ifaceNum)
}

// ClaimInterface claims the DFU interface for the reset control path.
func (d *Device) ClaimInterface() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return ErrClosed
	}
	if d.iface != nil {
		return nil
	}

	cfg, err := d.dev.Config(1)
	if err != nil {
		return fmt.Errorf("%w: selecting configuration: %w", ErrTransport, err)
	}
	iface, err := cfg.Interface(d.ifaceNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("%w: claiming interface %d: %w", ErrTransport, d.ifaceNum, err)
	}
	d.cfg = cfg
	d.iface = iface
	return nil
}

// ReleaseInterface releases a previously claimed DFU interface.
func (d *Device) ReleaseInterface() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.iface != nil {
		d.iface.Close()
		d.iface = nil
	}
	if d.cfg != nil {
		if err := d.cfg.Close(); err != nil {
			d.cfg = nil
			return fmt.Errorf("%w: releasing configuration: %w", ErrTransport, err)
		}
		d.cfg = nil
	}
	return nil
}

// Reopen closes the current handle and opens the array at the same logical
// index again. The device re-enumerates after a reset, so the old handle
// is dead; the logical index survives because the array keeps its bus
// position.
func (d *Device) Reopen() error {
	d.mu.Lock()
	d.closeHandleLocked()
	d.mu.Unlock()

	return d.open()
}

// Close releases the interface, the device handle and the libusb context.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeHandleLocked()
	if d.ctx != nil {
		if err := d.ctx.Close(); err != nil {
			d.ctx = nil
			return fmt.Errorf("%w: closing context: %w", ErrTransport, err)
		}
		d.ctx = nil
	}
	return nil
}

// closeHandleLocked tears down interface claim and device handle.
// Caller must hold d.mu.
func (d *Device) closeHandleLocked() {
	if d.iface != nil {
		d.iface.Close()
		d.iface = nil
	}
	if d.cfg != nil {
		_ = d.cfg.Close()
		d.cfg = nil
	}
	if d.dev != nil {
		_ = d.dev.Close()
		d.dev = nil
	}
}
