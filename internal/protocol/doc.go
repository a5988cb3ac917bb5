// Package protocol implements the vendor control-transfer encoding the
// ReSpeaker Mic Array v2.0 uses for its tuning parameters.
//
// # Wire format
//
// Reads are vendor IN transfers. The wValue field carries the command byte
// 0x80|cmd, additionally OR'd with 0x40 for integer-typed parameters; the
// wIndex field carries the device page. The device answers with 8 bytes:
// two little-endian int32 values (mantissa, exponent). Integer parameters
// are the mantissa verbatim; float parameters decode as
// mantissa * 2^exponent, truncated to float32. This mantissa/exponent
// convention is the DSP's native float representation, not IEEE-754
// passthrough.
//
// Writes are vendor OUT transfers carrying a 12-byte payload: little-endian
// int32 command, 4 value bytes (raw int32 or raw float32 bits), and a
// little-endian int32 type tag (1 = integer, 0 = float).
//
// # Validation
//
// Every write is validated before any transport I/O, in a fixed order so
// error messages are unambiguous: value tag against the parameter's domain,
// numeric range, then access level.
package protocol
