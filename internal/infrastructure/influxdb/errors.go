package influxdb

import "errors"

var (
	// ErrNotConnected indicates the client has been closed or never
	// connected. Writes after this are silently dropped; health checks
	// return it.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial ping to the server failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates the influxdb section of the configuration is
	// switched off. Connect refuses rather than sending telemetry nowhere.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
