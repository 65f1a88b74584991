// Package solvererr classifies the failure modes of a solve (§7) so the
// boundary layer can map them onto the wire-level status and message without
// string-matching error text.
package solvererr

import (
	"errors"
	"fmt"
)

// Kind names one of the five failure classes of §7.
type Kind string

const (
	// InvalidInput means the request failed structural validation.
	InvalidInput Kind = "INVALID_INPUT"
	// InfeasiblePin means a pin placed a visit outside the horizon, before
	// arrival, or collided with another pin. The instance itself was
	// ill-formed, distinct from a model that is well-formed but unsatisfiable.
	InfeasiblePin Kind = "INFEASIBLE_PIN"
	// InfeasibleModel means the instance is well-formed but no schedule
	// satisfies the hard constraints.
	InfeasibleModel Kind = "INFEASIBLE_MODEL"
	// TimeoutNoSolution means the search exhausted its budget before finding
	// any feasible solution.
	TimeoutNoSolution Kind = "TIMEOUT_NO_SOLUTION"
	// Internal means the solver itself failed (library panic, assertion).
	Internal Kind = "INTERNAL"
)

// Error is the solver's structured diagnostic. Field names a request field
// it concerns, when applicable, so the caller can point at the offending
// input.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no offending field.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithField names the request field the error concerns.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// Wrap attaches an underlying cause, typically for Internal errors.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// As extracts a *Error from err, unwrapping as needed.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
