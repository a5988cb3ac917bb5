// Package recorder samples the parameter cache to CSV files for offline
// analysis. Each recording session produces one file in the recordings
// directory, named by its UTC start time, with one column per parameter
// and one row per sample tick.
package recorder

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/brookman/respeaker-go/internal/param"
	"github.com/brookman/respeaker-go/internal/state"
)

// DefaultInterval is the sample period while recording.
const DefaultInterval = 10 * time.Millisecond

// filePermissions is the mode for recording files.
const filePermissions = 0644

// Logger is the logging surface the recorder needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Recorder writes periodic snapshots of a parameter cache to one CSV
// file. It is single-use: create, Run, and the file is complete.
type Recorder struct {
	id       string
	path     string
	file     *os.File
	w        *csv.Writer
	cache    *state.Cache
	columns  []param.Kind
	interval time.Duration
	logger   Logger
}

// New creates a recording session over the given cache. The recordings
// directory is created if needed and the CSV header is written
// immediately.
func New(dir string, cache *state.Cache, interval time.Duration) (*Recorder, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating recordings directory: %w", err)
	}

	start := time.Now().UTC()
	path := filepath.Join(dir, start.Format(time.RFC3339)+".csv")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("creating recording file: %w", err)
	}

	r := &Recorder{
		id:       uuid.NewString(),
		path:     path,
		file:     file,
		w:        csv.NewWriter(file),
		cache:    cache,
		columns:  param.Sorted(),
		interval: interval,
		logger:   noopLogger{},
	}

	if err := r.writeHeader(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	return r, nil
}

// SetLogger installs a logger. Must be called before Run.
func (r *Recorder) SetLogger(l Logger) {
	r.logger = l
}

// ID returns the session's unique identifier.
func (r *Recorder) ID() string { return r.id }

// Path returns the CSV file path.
func (r *Recorder) Path() string { return r.path }

func (r *Recorder) writeHeader() error {
	header := make([]string, 0, len(r.columns)+1)
	header = append(header, "timestamp")
	for _, k := range r.columns {
		header = append(header, k.String())
	}
	if err := r.w.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	r.w.Flush()
	return r.w.Error()
}

// Sample writes one row from the current cache contents. Parameters the
// cache has never seen produce empty cells.
func (r *Recorder) Sample(now time.Time) error {
	snapshot := r.cache.Snapshot()

	row := make([]string, 0, len(r.columns)+1)
	row = append(row, now.UTC().Format(time.RFC3339Nano))
	for _, k := range r.columns {
		if v, ok := snapshot[k]; ok {
			row = append(row, v.String())
		} else {
			row = append(row, "")
		}
	}
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("writing CSV row: %w", err)
	}
	return nil
}

// Run samples the cache on every tick until ctx is cancelled, then
// flushes and closes the file. It always returns the result of the final
// flush and close.
func (r *Recorder) Run(ctx context.Context) error {
	r.logger.Info("recording started", "file", r.path, "session", r.id, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var rows int
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("recording stopped", "file", r.path, "rows", rows)
			return r.Close()
		case now := <-ticker.C:
			if err := r.Sample(now); err != nil {
				r.logger.Warn("dropping sample", "error", err)
			} else {
				rows++
			}
		}
	}
}

// Close flushes buffered rows and closes the file. Safe to call once.
func (r *Recorder) Close() error {
	r.w.Flush()
	flushErr := r.w.Error()
	closeErr := r.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flushing recording: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing recording: %w", closeErr)
	}
	return nil
}
