// Package errs defines the error kinds shared across the solver and signal
// pipeline (see spec.md §7). Callers type-switch or use errors.Is against
// the sentinel Kind values; the wrapping functions attach context the way
// the teacher repo wraps matrix/circuit errors with fmt.Errorf.
package errs

import "errors"

// Kind identifies one of the error categories from spec.md §7.
type Kind int

const (
	_ Kind = iota
	ConfigError
	IoError
	MalformedTable
	OutOfField
	OutsideDetector
	OutOfTemperatureRange
	NotConverged
	Truncated
	AllocFailure
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case IoError:
		return "IoError"
	case MalformedTable:
		return "MalformedTable"
	case OutOfField:
		return "OutOfField"
	case OutsideDetector:
		return "OutsideDetector"
	case OutOfTemperatureRange:
		return "OutOfTemperatureRange"
	case NotConverged:
		return "NotConverged"
	case Truncated:
		return "Truncated"
	case AllocFailure:
		return "AllocFailure"
	default:
		return "Unknown"
	}
}

// Error is a Kind paired with a message, satisfying the error interface.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind around a lower-level error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
