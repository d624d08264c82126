// Package pdferr defines the failure kinds shared by the PDF operations and
// the HTTP layer that maps them to status codes.
package pdferr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure.
type Kind int

const (
	// Unknown is reported for errors that carry no Kind.
	Unknown Kind = iota
	InvalidInput
	ParseFailure
	ExternalToolMissing
	ExternalToolFailure
	NoOutputProduced
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case ParseFailure:
		return "parse_failure"
	case ExternalToolMissing:
		return "external_tool_missing"
	case ExternalToolFailure:
		return "external_tool_failure"
	case NoOutputProduced:
		return "no_output_produced"
	case IOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// Error is a classified failure raised by an operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error from a message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Errorf builds a classified error with a formatted cause. %w is honoured.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }
