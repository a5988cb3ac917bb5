package param

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		input   string
		want    Value
		wantErr bool
	}{
		{"int ok", HPFOnOff, "2", Int(2), false},
		{"int negative", DOAAngle, "-5", Int(-5), false},
		{"int not a number", HPFOnOff, "two", Value{}, true},
		{"int given float text", HPFOnOff, "1.5", Value{}, true},
		{"float ok", AGCGain, "12.5", Float(12.5), false},
		{"float scientific", AECSilenceLevel, "1e-9", Float(1e-9), false},
		{"float from int text", AGCGain, "3", Float(3), false},
		{"float garbage", AGCGain, "loud", Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.kind, tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparsableValue) {
					t.Fatalf("Parse(%s, %q) err = %v, want ErrUnparsableValue", tt.kind, tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%s, %q) unexpected error: %v", tt.kind, tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Parse(%s, %q) = %s, want %s", tt.kind, tt.input, got, tt.want)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same int", Int(3), Int(3), true},
		{"different int", Int(3), Int(4), false},
		{"same float", Float(0.5), Float(0.5), true},
		{"different float", Float(0.5), Float(0.7), false},
		{"tag mismatch", Int(1), Float(1), false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%s: Equal = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValueString(t *testing.T) {
	if got := Int(-42).String(); got != "-42" {
		t.Errorf("Int(-42).String() = %q", got)
	}
	if got := Float(0.5).String(); got != "0.5" {
		t.Errorf("Float(0.5).String() = %q", got)
	}
}
