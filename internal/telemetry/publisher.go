// Package telemetry fans the device's read-only state out to external
// sinks. It sits behind the state loop's tick observer: every refresh of
// the read-only parameters flows through Publish, which forwards changes
// to MQTT (retained per-parameter topics) and InfluxDB (one snapshot
// point per changed tick).
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/brookman/respeaker-go/internal/infrastructure/mqtt"
	"github.com/brookman/respeaker-go/internal/param"
)

// MessagePublisher is the MQTT surface the publisher needs.
// *mqtt.Client satisfies it.
type MessagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
}

// SampleWriter is the time-series surface the publisher needs.
// *influxdb.Client satisfies it.
type SampleWriter interface {
	WriteSnapshot(values map[string]float64, timestamp time.Time)
}

// Logger is the logging surface the publisher needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Sample is the JSON body published on per-parameter topics.
type Sample struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

// Publisher forwards read-only parameter updates to the configured sinks.
// Either sink may be nil; a nil sink is skipped.
//
// Publish is expected to be called from a single goroutine (the state
// loop), but the struct tolerates concurrent use.
type Publisher struct {
	mu     sync.Mutex
	mqttC  MessagePublisher
	influx SampleWriter
	logger Logger
	topics mqtt.Topics
	prev   map[param.Kind]param.Value
}

// NewPublisher creates a publisher over the given sinks.
func NewPublisher(m MessagePublisher, i SampleWriter) *Publisher {
	return &Publisher{
		mqttC:  m,
		influx: i,
		logger: noopLogger{},
		prev:   make(map[param.Kind]param.Value),
	}
}

// SetLogger installs a logger for publish failures.
func (p *Publisher) SetLogger(l Logger) {
	p.mu.Lock()
	p.logger = l
	p.mu.Unlock()
}

// Publish forwards one tick's read-only values. Unchanged values are
// suppressed so retained topics and the time series only carry real
// transitions; the very first tick publishes everything.
func (p *Publisher) Publish(values map[param.Kind]param.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	changed := false

	for k, v := range values {
		if prev, ok := p.prev[k]; ok && prev.Equal(v) {
			continue
		}
		changed = true
		p.prev[k] = v
		p.publishParam(k, v, now)
	}

	if changed && p.influx != nil {
		snapshot := make(map[string]float64, len(values))
		for k, v := range values {
			snapshot[k.String()] = v.AsFloat64()
		}
		p.influx.WriteSnapshot(snapshot, now)
	}
}

func (p *Publisher) publishParam(k param.Kind, v param.Value, now time.Time) {
	if p.mqttC == nil {
		return
	}
	sample := Sample{
		Name:      k.String(),
		Value:     v.String(),
		Timestamp: now.Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(sample)
	if err != nil {
		p.logger.Warn("encoding telemetry sample", "param", k.String(), "error", err)
		return
	}
	topic := p.topics.Param(k.String())
	if err := p.mqttC.PublishRetained(topic, payload); err != nil {
		p.logger.Warn("publishing telemetry sample", "topic", topic, "error", err)
	}
}

// PublishEvent publishes a one-shot event such as a completed reset.
// Events are not retained.
func (p *Publisher) PublishEvent(eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mqttC == nil {
		return
	}
	payload := fmt.Sprintf(`{"event":%q,"timestamp":%q}`,
		eventType, time.Now().UTC().Format(time.RFC3339))
	if err := p.mqttC.Publish(p.topics.Event(eventType), []byte(payload), 1, false); err != nil {
		p.logger.Warn("publishing event", "event", eventType, "error", err)
	}
}
