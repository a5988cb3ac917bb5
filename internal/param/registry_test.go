package param

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestDefinitionIsDeterministic(t *testing.T) {
	for _, k := range All() {
		first := k.Definition()
		second := k.Definition()
		if first.DeviceID != second.DeviceID || first.Command != second.Command ||
			first.Access != second.Access || first.Type != second.Type {
			t.Errorf("Definition(%s) not stable across calls", k)
		}
	}
}

func TestDefinitionAddresses(t *testing.T) {
	// Spot-check firmware addresses against the datasheet.
	tests := []struct {
		kind Kind
		id   uint16
		cmd  uint16
	}{
		{AECFreezeOnOff, 18, 7},
		{AECNorm, 18, 19},
		{HPFOnOff, 18, 27},
		{AGCOnOff, 19, 0},
		{AGCGain, 19, 3},
		{GammaVADSR, 19, 39},
		{DOAAngle, 21, 0},
	}
	for _, tt := range tests {
		def := tt.kind.Definition()
		if def.DeviceID != tt.id || def.Command != tt.cmd {
			t.Errorf("%s: address = %d/%d, want %d/%d",
				tt.kind, def.DeviceID, def.Command, tt.id, tt.cmd)
		}
	}
}

func TestSortedIsStablePermutationOfAll(t *testing.T) {
	first := Sorted()
	second := Sorted()

	if len(first) != len(All()) {
		t.Fatalf("Sorted() has %d kinds, want %d", len(first), len(All()))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Sorted() not stable: index %d differs (%s vs %s)", i, first[i], second[i])
		}
	}

	seen := make(map[Kind]bool, len(first))
	for _, k := range first {
		if seen[k] {
			t.Fatalf("Sorted() repeats %s", k)
		}
		seen[k] = true
	}
}

func TestSortedOrdering(t *testing.T) {
	// Read-write before read-only, ints before floats within each group.
	rank := func(k Kind) int {
		def := k.Definition()
		r := 0
		if def.Access == ReadOnly {
			r += 2
		}
		if def.Type == FloatRange {
			r++
		}
		return r
	}
	sorted := Sorted()
	for i := 1; i < len(sorted); i++ {
		if rank(sorted[i-1]) > rank(sorted[i]) {
			t.Fatalf("ordering violated at %d: %s before %s", i, sorted[i-1], sorted[i])
		}
	}

	// First kind must be a read-write int, last a read-only float.
	if def := sorted[0].Definition(); def.Access != ReadWrite || !def.Type.IsInt() {
		t.Errorf("first sorted kind %s is not a read-write int", sorted[0])
	}
	if def := sorted[len(sorted)-1].Definition(); def.Access != ReadOnly || def.Type != FloatRange {
		t.Errorf("last sorted kind %s is not a read-only float", sorted[len(sorted)-1])
	}
}

func TestKindFromString(t *testing.T) {
	tests := []struct {
		name    string
		want    Kind
		wantErr bool
	}{
		{"AECFREEZEONOFF", AECFreezeOnOff, false},
		{"aecfreezeonoff", AECFreezeOnOff, false},
		{"  GAMMA_NS_SR ", GammaNSSR, false},
		{"DOAANGLE", DOAAngle, false},
		{"NOPE", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := KindFromString(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownKind) {
				t.Errorf("KindFromString(%q) err = %v, want ErrUnknownKind", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("KindFromString(%q) unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("KindFromString(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestRoundTripNames(t *testing.T) {
	for _, k := range All() {
		got, err := KindFromString(k.String())
		if err != nil {
			t.Fatalf("KindFromString(%s): %v", k, err)
		}
		if got != k {
			t.Fatalf("name round-trip: %s -> %s", k, got)
		}
	}
}
