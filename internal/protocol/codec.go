package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/brookman/respeaker-go/internal/param"
)

// Wire format constants.
const (
	// readFlag marks a control transfer wValue as a parameter read.
	readFlag = 0x80

	// intFlag selects integer interpretation on the device side.
	intFlag = 0x40

	// ReadResponseLen is the size of a parameter read response.
	ReadResponseLen = 8

	// writePayloadLen is the size of a parameter write payload.
	writePayloadLen = 12

	// Type tags in the write payload.
	typeTagInt   = 1
	typeTagFloat = 0
)

// ReadCommand returns the wValue for a parameter read request:
// 0x80 | command, OR'd with 0x40 when the parameter is integer-typed.
func ReadCommand(def param.Definition) uint16 {
	cmd := readFlag | def.Command
	if def.Type.IsInt() {
		cmd |= intFlag
	}
	return cmd
}

// DecodeReadResponse turns the 8-byte (mantissa, exponent) response into a
// typed Value for the given definition.
//
// Integer parameters take the mantissa verbatim. Float parameters compute
// mantissa * 2^exponent in float64 and truncate to float32; the firmware
// expects exactly this lossy narrowing, so it must not be widened or
// rounded differently.
func DecodeReadResponse(def param.Definition, buf []byte) (param.Value, error) {
	if len(buf) < ReadResponseLen {
		return param.Value{}, fmt.Errorf("%w: got %d bytes", ErrShortResponse, len(buf))
	}

	mantissa := int32(binary.LittleEndian.Uint32(buf[0:4]))
	exponent := int32(binary.LittleEndian.Uint32(buf[4:8]))

	if def.Type.IsInt() {
		return param.Int(mantissa), nil
	}
	f := float32(float64(mantissa) * math.Exp2(float64(exponent)))
	return param.Float(f), nil
}

// ValidateWrite checks the mandatory write preconditions for k, in order:
//
//  1. the Value's tag matches the parameter's domain (ErrTypeMismatch)
//  2. the numeric value lies in [min, max] inclusive (ErrOutOfRange)
//  3. the parameter is writable (ErrReadOnly)
//
// The order is part of the contract: a float handed to an integer
// parameter reports a type mismatch even if its bits would also be out of
// range when misread as an integer.
func ValidateWrite(k param.Kind, v param.Value) error {
	def := k.Definition()

	if def.Type.IsInt() == v.IsFloat() {
		want, got := "int32", "float32"
		if !def.Type.IsInt() {
			want, got = got, want
		}
		return fmt.Errorf("%w: %s wants %s, got %s", ErrTypeMismatch, k, want, got)
	}

	actual := v.AsFloat64()
	if actual < def.Min || actual > def.Max {
		return &RangeError{Kind: k, Min: def.Min, Max: def.Max, Actual: actual}
	}

	if def.Access == param.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, k)
	}
	return nil
}

// EncodeWriteRequest validates (k, v) and builds the 12-byte write payload:
// little-endian int32 command, 4 raw value bytes, little-endian int32 type
// tag. The payload carries the value's native bit pattern; the
// mantissa/exponent transform applies to reads only.
func EncodeWriteRequest(k param.Kind, v param.Value) ([]byte, error) {
	if err := ValidateWrite(k, v); err != nil {
		return nil, err
	}
	def := k.Definition()

	payload := make([]byte, writePayloadLen)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(def.Command))
	if v.IsFloat() {
		binary.LittleEndian.PutUint32(payload[4:8], math.Float32bits(v.Float()))
		binary.LittleEndian.PutUint32(payload[8:12], typeTagFloat)
	} else {
		binary.LittleEndian.PutUint32(payload[4:8], uint32(v.Int()))
		binary.LittleEndian.PutUint32(payload[8:12], typeTagInt)
	}
	return payload, nil
}
