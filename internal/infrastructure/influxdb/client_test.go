package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/brookman/respeaker-go/internal/infrastructure/config"
	"github.com/brookman/respeaker-go/internal/infrastructure/influxdb"
)

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "respeaker-dev-token",
		Org:           "respeaker",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connect dials a local dev InfluxDB, skipping the test when none is
// reachable and RUN_INTEGRATION is unset.
func connect(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") == "" {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// collectErrors registers an error callback and returns a getter.
func collectErrors(client *influxdb.Client) func() error {
	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

// flushAndCheck forces the pending batch out and reports any async
// write error the client surfaced.
func flushAndCheck(t *testing.T, client *influxdb.Client, lastErr func() error) {
	t.Helper()

	client.Flush()
	time.Sleep(100 * time.Millisecond)

	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestConnect(t *testing.T) {
	client := connect(t, testConfig())

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); err == nil {
		t.Fatal("Connect() should fail for an unreachable server")
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0
	cfg.FlushInterval = 0

	client := connect(t, cfg)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

func TestHealthCheck(t *testing.T) {
	client := connect(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := connect(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

func TestWriteParameter(t *testing.T) {
	client := connect(t, testConfig())
	lastErr := collectErrors(client)

	client.WriteParameter("DOAANGLE", 135)

	flushAndCheck(t, client, lastErr)
}

func TestWriteSnapshot(t *testing.T) {
	client := connect(t, testConfig())
	lastErr := collectErrors(client)

	client.WriteSnapshot(map[string]float64{
		"DOAANGLE":       135,
		"RT60":           0.42,
		"SPEECHDETECTED": 1,
	}, time.Now())

	flushAndCheck(t, client, lastErr)
}

func TestWriteSnapshot_Empty(t *testing.T) {
	client := connect(t, testConfig())
	lastErr := collectErrors(client)

	// An empty snapshot must not produce a field-less point.
	client.WriteSnapshot(nil, time.Now())

	flushAndCheck(t, client, lastErr)
}

func TestClose(t *testing.T) {
	cfg := testConfig()
	client, err := influxdb.Connect(cfg)
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") == "" {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteParameter("RT60", 0.3)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
