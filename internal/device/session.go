package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brookman/respeaker-go/internal/param"
	"github.com/brookman/respeaker-go/internal/protocol"
	"github.com/brookman/respeaker-go/internal/state"
	"github.com/brookman/respeaker-go/internal/usb"
)

// dfuResetDevice is the XMOS DFU request code that reboots the array.
const dfuResetDevice = 0xF0

// DefaultSettleTime is how long the array needs to re-enumerate after a
// reset before the transport can be reopened.
const DefaultSettleTime = 2 * time.Second

// Transport is the USB surface the session drives. Implemented by
// usb.Device; tests substitute a stub.
type Transport interface {
	// ControlRead issues one IN control transfer with the transport's
	// bounded timeout and returns the byte count.
	ControlRead(requestType, request uint8, value, index uint16, buf []byte) (int, error)

	// ControlWrite issues one OUT control transfer with the transport's
	// bounded timeout and returns the byte count.
	ControlWrite(requestType, request uint8, value, index uint16, payload []byte) (int, error)

	// ClaimInterface and ReleaseInterface bracket the DFU reset command.
	ClaimInterface() error
	ReleaseInterface() error

	// InterfaceNumber is the DFU interface number the reset targets.
	InterfaceNumber() uint8

	// Reopen re-establishes the handle after the device re-enumerates.
	Reopen() error

	// Close tears the handle down.
	Close() error
}

// Logger is the logging interface used by the session.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config contains session tuning knobs.
type Config struct {
	// SettleTime overrides how long Reset blocks before reopening the
	// transport. Zero means DefaultSettleTime.
	SettleTime time.Duration
}

// Row is one entry of a full parameter listing: the kind, its definition
// and the value just read from the device.
type Row struct {
	Kind       param.Kind
	Definition param.Definition
	Value      param.Value
}

// Session orchestrates parameter reads, writes and resets against one
// open transport, and owns the shared parameter cache.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Transfers are serialised
//     by an internal transport lock; the cache carries its own lock and
//     the two are never held together.
type Session struct {
	// transportMu serialises control transfers; a USB control transfer
	// must not interleave with another on the same handle.
	transportMu sync.Mutex
	transport   Transport

	cache  *state.Cache
	settle time.Duration
	logger Logger

	resetting atomic.Bool
	closed    atomic.Bool
}

// NewSession creates a session over an already-open transport and an
// empty cache. Callers must prime the cache with List (or
// ReadAllReadOnly) once before relying on cached values.
func NewSession(transport Transport, cfg Config) *Session {
	settle := cfg.SettleTime
	if settle <= 0 {
		settle = DefaultSettleTime
	}
	return &Session{
		transport: transport,
		cache:     state.NewCache(),
		settle:    settle,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the session.
func (s *Session) SetLogger(logger Logger) {
	s.logger = logger
}

// Cache returns the shared parameter cache. The cache is owned by the
// session and torn down with it; collaborators hold it by reference.
func (s *Session) Cache() *state.Cache {
	return s.cache
}

// Read fetches the current value of k from the device, updates the cache
// unconditionally on success, and returns the value.
func (s *Session) Read(k param.Kind) (param.Value, error) {
	if err := s.guard(); err != nil {
		return param.Value{}, err
	}
	def := k.Definition()
	start := time.Now()

	buf := make([]byte, protocol.ReadResponseLen)
	s.transportMu.Lock()
	n, err := s.transport.ControlRead(usb.VendorRead, 0, protocol.ReadCommand(def), def.DeviceID, buf)
	s.transportMu.Unlock()
	if err != nil {
		return param.Value{}, fmt.Errorf("reading %s: %w", k, err)
	}

	v, err := protocol.DecodeReadResponse(def, buf[:n])
	if err != nil {
		return param.Value{}, fmt.Errorf("reading %s: %w", k, err)
	}

	s.cache.Set(k, v)
	s.logger.Debug("parameter read", "param", k.String(), "value", v.String(), "elapsed", time.Since(start))
	return v, nil
}

// Write validates (k, v) through the codec and, if valid, pushes the
// value to the device and records it in the cache. Validation failures
// never touch the transport.
func (s *Session) Write(k param.Kind, v param.Value) error {
	if err := s.guard(); err != nil {
		return err
	}

	payload, err := protocol.EncodeWriteRequest(k, v)
	if err != nil {
		return err
	}
	def := k.Definition()

	s.transportMu.Lock()
	_, err = s.transport.ControlWrite(usb.VendorWrite, 0, 0, def.DeviceID, payload)
	s.transportMu.Unlock()
	if err != nil {
		return fmt.Errorf("writing %s: %w", k, err)
	}

	s.cache.Set(k, v)
	s.logger.Debug("parameter written", "param", k.String(), "value", v.String())
	return nil
}

// ReadAllReadOnly reads every read-only parameter in registry order.
// The first failure aborts the whole call; callers needing partial
// results must call Read per kind.
func (s *Session) ReadAllReadOnly() (map[param.Kind]param.Value, error) {
	result := make(map[param.Kind]param.Value)
	for _, k := range param.All() {
		if k.Definition().Access != param.ReadOnly {
			continue
		}
		v, err := s.Read(k)
		if err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, nil
}

// List reads every parameter (both access levels) and returns the rows in
// display order. This is the bootstrap call that primes the cache.
func (s *Session) List() ([]Row, error) {
	values := make(map[param.Kind]param.Value, len(param.All()))
	for _, k := range param.All() {
		v, err := s.Read(k)
		if err != nil {
			return nil, err
		}
		values[k] = v
	}

	rows := make([]Row, 0, len(values))
	for _, k := range param.Sorted() {
		rows = append(rows, Row{Kind: k, Definition: k.Definition(), Value: values[k]})
	}
	return rows, nil
}

// Reset reboots the array: claim the DFU interface, send the reset
// command, release, wait out the settle time, then reopen the transport
// against the same logical device index. Reads and writes issued while
// the reset is in flight fail with ErrResetInFlight. On success the cache
// is stale until the caller primes it again.
func (s *Session) Reset() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.resetting.CompareAndSwap(false, true) {
		return ErrResetInFlight
	}
	defer s.resetting.Store(false)

	s.transportMu.Lock()
	defer s.transportMu.Unlock()

	if err := s.transport.ClaimInterface(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	iface := uint16(s.transport.InterfaceNumber())
	_, err := s.transport.ControlWrite(usb.ClassInterfaceWrite, dfuResetDevice, 0, iface, nil)
	if releaseErr := s.transport.ReleaseInterface(); err == nil {
		err = releaseErr
	}
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	s.logger.Info("device reset issued, waiting for re-enumeration", "settle", s.settle)
	time.Sleep(s.settle)

	if err := s.transport.Reopen(); err != nil {
		return fmt.Errorf("reset: reopening device: %w", err)
	}
	s.logger.Info("device reopened after reset")
	return nil
}

// Close tears down the session and its transport.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.transportMu.Lock()
	defer s.transportMu.Unlock()
	return s.transport.Close()
}

// guard rejects operations in states that must not reach the transport.
func (s *Session) guard() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.resetting.Load() {
		return ErrResetInFlight
	}
	return nil
}
