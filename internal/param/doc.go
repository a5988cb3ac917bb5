// Package param defines the tuning parameter table of the ReSpeaker
// Mic Array v2.0.
//
// Every tunable or telemetry value the device exposes is identified by a
// Kind. A Kind resolves to exactly one Definition describing how the
// parameter is addressed on the device (page and command), whether it may
// be written, and what values it accepts. The table is fixed at compile
// time; a malformed table is a build defect, not a runtime condition.
//
// # Key Types
//
//   - Kind: enumerated identifier for one parameter (AECFREEZEONOFF ... VOICEACTIVITY)
//   - Definition: device addressing, access level, value domain, documentation
//   - Value: tagged int32/float32 union carried through cache, codec and session
//
// # Ordering
//
// All() yields kinds in declaration order. Sorted() yields the display and
// export order: read-write before read-only, integer-typed before
// float-typed, declaration order breaking ties. Both orderings are stable
// across runs; the CSV recorder and every UI surface rely on that.
//
// # Usage
//
//	def := param.DOAAngle.Definition()
//	v, err := param.Parse(param.AGCGain, "12.5")
//	for _, k := range param.Sorted() { ... }
package param
