package preset

import (
	"errors"
	"testing"

	"github.com/brookman/respeaker-go/internal/param"
)

type recordingWriter struct {
	writes []param.Kind
	failOn param.Kind
	err    error
}

func (w *recordingWriter) Write(k param.Kind, v param.Value) error {
	if w.err != nil && k == w.failOn {
		return w.err
	}
	w.writes = append(w.writes, k)
	return nil
}

func TestCaptureKeepsOnlyWritable(t *testing.T) {
	snapshot := map[param.Kind]param.Value{
		param.AGCOnOff:       param.Int(1),
		param.AGCGain:        param.Float(2),
		param.DOAAngle:       param.Int(90),
		param.SpeechDetected: param.Int(1),
	}

	values := Capture(snapshot)

	if len(values) != 2 {
		t.Fatalf("Capture() kept %d values, want 2", len(values))
	}
	if _, ok := values[param.DOAAngle]; ok {
		t.Error("Capture() kept read-only DOAANGLE")
	}
	if v, ok := values[param.AGCOnOff]; !ok || !v.Equal(param.Int(1)) {
		t.Errorf("AGCONOFF = %v %v, want 1", v, ok)
	}
}

func TestApplyWritesInDisplayOrder(t *testing.T) {
	p := &Preset{Values: testValues()}
	w := &recordingWriter{}

	if err := p.Apply(w); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(w.writes) != len(p.Values) {
		t.Fatalf("Apply() wrote %d params, want %d", len(w.writes), len(p.Values))
	}

	// Writes follow the display ordering of the parameter table.
	order := make(map[param.Kind]int)
	for i, k := range param.Sorted() {
		order[k] = i
	}
	for i := 1; i < len(w.writes); i++ {
		if order[w.writes[i-1]] >= order[w.writes[i]] {
			t.Fatalf("writes out of order: %s before %s", w.writes[i-1], w.writes[i])
		}
	}
}

func TestApplyStopsOnFirstError(t *testing.T) {
	p := &Preset{Values: testValues()}
	boom := errors.New("transfer failed")
	w := &recordingWriter{failOn: param.GammaNS, err: boom}

	err := p.Apply(w)
	if !errors.Is(err, boom) {
		t.Fatalf("Apply() error = %v, want wrapped transfer failure", err)
	}
	for _, k := range w.writes {
		if k == param.GammaNS {
			t.Fatal("failed write was recorded")
		}
	}
}

func TestValuesRoundTrip(t *testing.T) {
	values := testValues()

	encoded, err := encodeValues(values)
	if err != nil {
		t.Fatalf("encodeValues() error = %v", err)
	}
	decoded, err := decodeValues(encoded)
	if err != nil {
		t.Fatalf("decodeValues() error = %v", err)
	}

	if len(decoded) != len(values) {
		t.Fatalf("decoded %d values, want %d", len(decoded), len(values))
	}
	for k, want := range values {
		if v, ok := decoded[k]; !ok || !v.Equal(want) {
			t.Errorf("value %s = %v %v, want %v", k, v, ok, want)
		}
	}
}

func TestDecodeValuesRejectsUnknownName(t *testing.T) {
	if _, err := decodeValues(`{"NOT_A_PARAM": "1"}`); err == nil {
		t.Fatal("decodeValues() accepted unknown parameter name")
	}
}
