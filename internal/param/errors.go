package param

import "errors"

// Domain errors for the param package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, param.ErrUnknownKind) { ... }
var (
	// ErrUnknownKind is returned when a name does not resolve to a Kind.
	ErrUnknownKind = errors.New("param: unknown parameter")

	// ErrUnparsableValue is returned when text cannot be parsed into the
	// value domain a parameter expects.
	ErrUnparsableValue = errors.New("param: unparsable value")

	// ErrBadTable is returned by Validate when the compiled-in parameter
	// table violates a registry invariant.
	ErrBadTable = errors.New("param: malformed parameter table")
)
