package gufe

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by encode and decode operations. Callers can
// distinguish failure modes with errors.Is, letting persistence layers tell
// "not yet stored" apart from "structurally invalid".
var (
	// ErrMalformedRecord indicates a decode input is missing the required
	// "__module__" or "__qualname__" type tags.
	ErrMalformedRecord = errors.New("gufe: malformed record")

	// ErrUnresolvableType indicates the type tags are present but no
	// matching class is registered and no resolver could supply one.
	ErrUnresolvableType = errors.New("gufe: unresolvable type")

	// ErrUnresolvableReference indicates a keyed decode references a key
	// with no live entry in the instance registry.
	ErrUnresolvableReference = errors.New("gufe: unresolvable reference")

	// ErrContractViolation indicates a concrete type was used for
	// tokenization without honoring the Tokenizable contract, such as
	// returning a nil shallow dictionary.
	ErrContractViolation = errors.New("gufe: tokenizable contract violation")

	// ErrInvalidKey indicates a string does not parse as a
	// "{TypeName}-{fingerprint}" key.
	ErrInvalidKey = errors.New("gufe: invalid key")
)

// DecodeError is a structured error describing a failed decode operation.
// It carries the operation name, the type tags or key involved, and wraps
// the underlying cause so errors.Is and errors.As keep working through it.
type DecodeError struct {
	// Op is the operation that failed (e.g., "FromDict", "FromKeyedDict").
	Op string

	// Module and Qualname are the type tags from the offending record,
	// when known.
	Module   string
	Qualname string

	// Key is the reference key involved, for keyed decode failures.
	Key Key

	// Err is the underlying cause, always wrapping one of the package
	// sentinel errors.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("gufe: %s: key %q: %v", e.Op, string(e.Key), e.Err)
	case e.Qualname != "":
		return fmt.Sprintf("gufe: %s: class %s.%s: %v", e.Op, e.Module, e.Qualname, e.Err)
	default:
		return fmt.Sprintf("gufe: %s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(op string, qn QualifiedName, cause error) *DecodeError {
	return &DecodeError{Op: op, Module: qn.Module, Qualname: qn.Qualname, Err: cause}
}

func referenceErr(op string, key Key, cause error) *DecodeError {
	return &DecodeError{Op: op, Key: key, Err: cause}
}
