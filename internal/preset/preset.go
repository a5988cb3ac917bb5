// Package preset persists named snapshots of the device's writable
// parameters and applies them back to a device.
//
// A preset stores only ReadWrite parameters. Read-only telemetry has no
// meaning in a snapshot and is never captured or applied.
package preset

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brookman/respeaker-go/internal/param"
)

// Preset is a named snapshot of writable parameter values.
type Preset struct {
	ID          string
	Name        string
	Description string
	Values      map[param.Kind]param.Value
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Writer accepts parameter writes. *device.Session satisfies it.
type Writer interface {
	Write(param.Kind, param.Value) error
}

// Capture builds a preset's value set from a cache snapshot, keeping only
// writable parameters that have a known value.
func Capture(snapshot map[param.Kind]param.Value) map[param.Kind]param.Value {
	values := make(map[param.Kind]param.Value)
	for k, v := range snapshot {
		if k.Definition().Access == param.ReadWrite {
			values[k] = v
		}
	}
	return values
}

// Apply writes every value in the preset to w, in display order so runs
// are reproducible. It stops at the first failed write.
func (p *Preset) Apply(w Writer) error {
	for _, k := range param.Sorted() {
		v, ok := p.Values[k]
		if !ok {
			continue
		}
		if err := w.Write(k, v); err != nil {
			return fmt.Errorf("applying %s: %w", k, err)
		}
	}
	return nil
}

// encodeValues serialises the value map to JSON keyed by parameter name.
// Values are stored as strings; the parameter's own domain restores the
// type on load.
func encodeValues(values map[param.Kind]param.Value) (string, error) {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k.String()] = v.String()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding preset values: %w", err)
	}
	return string(data), nil
}

// decodeValues restores a value map from its JSON form. Unknown parameter
// names fail the whole decode so a stale database surfaces loudly.
func decodeValues(data string) (map[param.Kind]param.Value, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("decoding preset values: %w", err)
	}
	values := make(map[param.Kind]param.Value, len(m))
	for name, raw := range m {
		k, err := param.KindFromString(name)
		if err != nil {
			return nil, fmt.Errorf("decoding preset values: %w", err)
		}
		v, err := param.Parse(k, raw)
		if err != nil {
			return nil, fmt.Errorf("decoding preset value %s: %w", name, err)
		}
		values[k] = v
	}
	return values, nil
}
