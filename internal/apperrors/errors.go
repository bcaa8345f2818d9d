// Package apperrors defines the error kinds returned by services and
// translated into HTTP statuses by the handlers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure
type Kind int

const (
	// KindInternal is any failure that is not one of the kinds below
	KindInternal Kind = iota
	// KindValidation means malformed input, such as a wrong answer count or a missing publish requirement
	KindValidation
	// KindPrecondition means the entity is in a state that does not allow the operation
	KindPrecondition
	// KindNotFound means the referenced entity does not exist
	KindNotFound
	// KindForbidden means the caller does not own the entity
	KindForbidden
	// KindConflict means a uniqueness or concurrent state conflict
	KindConflict
	// KindExternal means the payment gateway or certificate renderer failed
	KindExternal
	// KindSecurity means a payment signature did not verify
	KindSecurity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindExternal:
		return "external"
	case KindSecurity:
		return "security"
	default:
		return "internal"
	}
}

// Error is a classified error carrying a caller-facing reason
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a validation error
func Validation(reason string) error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// Validationf returns a validation error with a formatted reason
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// Precondition returns a precondition error
func Precondition(reason string) error {
	return &Error{Kind: KindPrecondition, Reason: reason}
}

// NotFound returns a not found error
func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

// Forbidden returns an ownership error
func Forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

// Conflict returns an integrity conflict error
func Conflict(reason string) error {
	return &Error{Kind: KindConflict, Reason: reason}
}

// External returns an external dependency error wrapping the cause
func External(reason string, err error) error {
	return &Error{Kind: KindExternal, Reason: reason, Err: err}
}

// Security returns a security error
func Security(reason string) error {
	return &Error{Kind: KindSecurity, Reason: reason}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Reason returns the caller-facing reason of err, or an empty string for internal errors
func Reason(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
