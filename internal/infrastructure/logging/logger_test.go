package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/brookman/respeaker-go/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	for _, cfg := range []config.LoggingConfig{
		{Level: "info", Format: "json", Output: "stdout"},
		{Level: "debug", Format: "text", Output: "stderr"},
		{Level: "", Format: "", Output: ""},
	} {
		if New(cfg, "1.0.0") == nil {
			t.Fatalf("New(%+v) = nil", cfg)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWith(t *testing.T) {
	logger := Default()
	child := logger.With("component", "usb")

	if child == nil {
		t.Fatal("With() = nil")
	}
	if child == logger {
		t.Error("With() should return a new logger, not the receiver")
	}
}

func TestDefaultFieldsInOutput(t *testing.T) {
	var buf bytes.Buffer

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}).
		WithAttrs([]slog.Attr{
			slog.String("service", "respeaker"),
			slog.String("version", "test"),
		})

	logger := &Logger{Logger: slog.New(handler)}
	logger.Info("device opened", "index", 0)

	output := buf.String()
	if !strings.Contains(output, `"service":"respeaker"`) {
		t.Errorf("output missing service field: %s", output)
	}
	if !strings.Contains(output, `"version":"test"`) {
		t.Errorf("output missing version field: %s", output)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parsing JSON output: %v", err)
	}
	if entry["msg"] != "device opened" {
		t.Errorf("msg = %v, want %q", entry["msg"], "device opened")
	}
	if entry["index"] != float64(0) {
		t.Errorf("index = %v, want 0", entry["index"])
	}
}
