package telemetry

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brookman/respeaker-go/internal/param"
)

type mockMQTT struct {
	mu       sync.Mutex
	retained map[string][]byte
	events   map[string][]byte
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{
		retained: make(map[string][]byte),
		events:   make(map[string][]byte),
	}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if retained {
		m.retained[topic] = payload
	} else {
		m.events[topic] = payload
	}
	return nil
}

func (m *mockMQTT) PublishRetained(topic string, payload []byte) error {
	return m.Publish(topic, payload, 1, true)
}

type mockInflux struct {
	mu        sync.Mutex
	snapshots []map[string]float64
}

func (m *mockInflux) WriteSnapshot(values map[string]float64, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	m.snapshots = append(m.snapshots, copied)
}

func TestPublishFirstTickPublishesAll(t *testing.T) {
	mq := newMockMQTT()
	influx := &mockInflux{}
	p := NewPublisher(mq, influx)

	p.Publish(map[param.Kind]param.Value{
		param.DOAAngle:       param.Int(90),
		param.SpeechDetected: param.Int(0),
	})

	if len(mq.retained) != 2 {
		t.Fatalf("retained %d topics, want 2", len(mq.retained))
	}

	payload, ok := mq.retained["respeaker/param/DOAANGLE"]
	if !ok {
		t.Fatal("DOAANGLE topic not published")
	}
	var s Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		t.Fatalf("unmarshalling sample: %v", err)
	}
	if s.Name != "DOAANGLE" || s.Value != "90" {
		t.Errorf("sample = %+v", s)
	}

	if len(influx.snapshots) != 1 {
		t.Fatalf("influx got %d snapshots, want 1", len(influx.snapshots))
	}
	if influx.snapshots[0]["DOAANGLE"] != 90 {
		t.Errorf("snapshot DOAANGLE = %v, want 90", influx.snapshots[0]["DOAANGLE"])
	}
}

func TestPublishSuppressesUnchanged(t *testing.T) {
	mq := newMockMQTT()
	influx := &mockInflux{}
	p := NewPublisher(mq, influx)

	values := map[param.Kind]param.Value{
		param.DOAAngle:       param.Int(90),
		param.SpeechDetected: param.Int(0),
	}
	p.Publish(values)

	// Same values again: nothing new retained, no new snapshot.
	mq.retained = make(map[string][]byte)
	p.Publish(values)

	if len(mq.retained) != 0 {
		t.Errorf("unchanged tick published %d topics, want 0", len(mq.retained))
	}
	if len(influx.snapshots) != 1 {
		t.Errorf("unchanged tick wrote %d snapshots, want 1", len(influx.snapshots))
	}

	// One value moves: only that topic republishes, full snapshot written.
	values[param.DOAAngle] = param.Int(180)
	p.Publish(values)

	if len(mq.retained) != 1 {
		t.Fatalf("changed tick published %d topics, want 1", len(mq.retained))
	}
	if _, ok := mq.retained["respeaker/param/DOAANGLE"]; !ok {
		t.Error("changed DOAANGLE was not republished")
	}
	if len(influx.snapshots) != 2 {
		t.Fatalf("changed tick wrote %d snapshots, want 2", len(influx.snapshots))
	}
	if len(influx.snapshots[1]) != 2 {
		t.Errorf("snapshot has %d fields, want full set of 2", len(influx.snapshots[1]))
	}
}

func TestPublishNilSinks(t *testing.T) {
	p := NewPublisher(nil, nil)

	// Must not panic.
	p.Publish(map[param.Kind]param.Value{param.DOAAngle: param.Int(1)})
	p.PublishEvent("reset_completed")
}

func TestPublishEventNotRetained(t *testing.T) {
	mq := newMockMQTT()
	p := NewPublisher(mq, nil)

	p.PublishEvent("reset_completed")

	if len(mq.retained) != 0 {
		t.Error("event was published retained")
	}
	if _, ok := mq.events["respeaker/event/reset_completed"]; !ok {
		t.Error("event topic not published")
	}
}

type mockSink struct {
	sets   map[param.Kind]param.Value
	resets int
	setErr error
}

func newMockSink() *mockSink {
	return &mockSink{sets: make(map[param.Kind]param.Value)}
}

func (s *mockSink) Set(k param.Kind, v param.Value) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.sets[k] = v
	return nil
}

func (s *mockSink) Reset() error {
	s.resets++
	return nil
}

func TestHandleSet(t *testing.T) {
	sink := newMockSink()

	if err := handleSet(sink, []byte(`{"name":"AGCONOFF","value":"1"}`)); err != nil {
		t.Fatalf("handleSet() error = %v", err)
	}
	if v, ok := sink.sets[param.AGCOnOff]; !ok || !v.Equal(param.Int(1)) {
		t.Errorf("sink got %v %v, want 1", v, ok)
	}

	// Float parameter parses into its own domain.
	if err := handleSet(sink, []byte(`{"name":"AGCGAIN","value":"2.5"}`)); err != nil {
		t.Fatalf("handleSet(float) error = %v", err)
	}
	if v := sink.sets[param.AGCGain]; !v.IsFloat() || v.Float() != 2.5 {
		t.Errorf("AGCGAIN = %v, want float 2.5", v)
	}
}

func TestHandleSetRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{not json`},
		{"unknown parameter", `{"name":"NOPE","value":"1"}`},
		{"unparsable value", `{"name":"AGCONOFF","value":"banana"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newMockSink()
			if err := handleSet(sink, []byte(tt.payload)); err == nil {
				t.Error("handleSet() accepted bad payload")
			}
			if len(sink.sets) != 0 {
				t.Error("bad payload reached the sink")
			}
		})
	}
}

func TestHandleSetPropagatesSinkError(t *testing.T) {
	sink := newMockSink()
	sink.setErr = errors.New("out of range")

	if err := handleSet(sink, []byte(`{"name":"AGCONOFF","value":"1"}`)); err == nil {
		t.Error("handleSet() swallowed sink error")
	}
}
