// Package api implements the HTTP REST API and WebSocket server for the
// respeaker daemon.
//
// This package provides:
//   - REST endpoints for parameter reads, writes, and device reset
//   - Preset capture, apply, and management endpoints
//   - WebSocket hub for real-time telemetry broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between local consumers (dashboards, scripts, home
// automation) and the device session. Reads and writes go straight to
// the session, which validates values against the parameter registry
// before any USB traffic. Telemetry flows the other way: the
// reconciliation loop hands each tick's read-only values to the
// WebSocket hub, which fans them out to subscribed clients.
//
// # Security
//
// The server is intended to bind to loopback. There is no
// authentication layer; anything that can reach the port can drive the
// microphone array, the same trust model as the USB device node itself.
//
// # Graceful Degradation
//
// The server operates without a preset repository. Preset routes return
// 503 while parameter and telemetry routes keep working.
package api
