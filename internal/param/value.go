package param

import (
	"fmt"
	"strconv"
)

// Value is the tagged union carried through the cache, the codec and the
// device session. A Value is always interpreted against the Definition of
// the Kind it belongs to; handing a float Value to an integer parameter is
// a protocol error, not a domain error.
type Value struct {
	isFloat bool
	i       int32
	f       float32
}

// Int builds an integer Value.
func Int(v int32) Value {
	return Value{i: v}
}

// Float builds a float Value.
func Float(v float32) Value {
	return Value{isFloat: true, f: v}
}

// IsFloat reports whether the Value carries a float.
func (v Value) IsFloat() bool {
	return v.isFloat
}

// Int returns the integer payload. Meaningless when IsFloat is true.
func (v Value) Int() int32 {
	return v.i
}

// Float returns the float payload. Meaningless when IsFloat is false.
func (v Value) Float() float32 {
	return v.f
}

// AsFloat64 widens either payload to float64, for range checks and
// telemetry sinks that only speak float.
func (v Value) AsFloat64() float64 {
	if v.isFloat {
		return float64(v.f)
	}
	return float64(v.i)
}

// Equal reports whether two Values carry the same tag and payload.
// Float comparison is bit-for-bit: the reconciliation diff must treat a
// value as changed exactly when the editor stored different bits.
func (v Value) Equal(o Value) bool {
	if v.isFloat != o.isFloat {
		return false
	}
	if v.isFloat {
		return v.f == o.f
	}
	return v.i == o.i
}

// String renders the payload the way the CSV export and CLI tables print it.
func (v Value) String() string {
	if v.isFloat {
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	}
	return strconv.FormatInt(int64(v.i), 10)
}

// Parse converts a textual value into a Value of the domain k expects.
// Integer parameters accept base-10 int32 text; float parameters accept
// any float32 text. The result is not range-checked here; the codec
// validates ranges before a write reaches the transport.
func Parse(k Kind, s string) (Value, error) {
	def := k.Definition()
	if def.Type.IsInt() {
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s wants an int32, got %q", ErrUnparsableValue, k, s)
		}
		return Int(int32(i)), nil
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s wants a float32, got %q", ErrUnparsableValue, k, s)
	}
	return Float(float32(f)), nil
}
