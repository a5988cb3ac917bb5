package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/brookman/respeaker-go/internal/infrastructure/config"
)

// Logger is slog.Logger carrying the service-wide default fields.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging config section. Every record
// carries service=respeaker and the build version.
//
// The CLI prints tables and CSV on stdout, so logs go to stderr unless
// the config says otherwise.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "respeaker"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps the config string to a slog level. Unknown strings
// fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger with extra default attributes.
//
//	usbLog := log.With("component", "usb")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used before the config file has been read:
// text to stderr at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}, "dev")
}
