// Package cmderr defines the error taxonomy for chat command handling.
package cmderr

import "errors"

// Kind is a machine-readable error category.
type Kind string

const (
	PermissionDenied     Kind = "PERMISSION_DENIED"
	NotFound             Kind = "NOT_FOUND"
	InvalidState         Kind = "INVALID_STATE"
	InsufficientQuantity Kind = "INSUFFICIENT_QUANTITY"
	WriteVerification    Kind = "WRITE_VERIFICATION"
	RemoteService        Kind = "REMOTE_SERVICE"
	AmbiguousMatch       Kind = "AMBIGUOUS_MATCH"
)

// Error is a command error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string // shown to the user as-is
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind with an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// UserMessage returns the message to show a user for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsResolution reports whether err is a local resolution failure that
// should be surfaced as a notice rather than treated as a fault.
func IsResolution(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	switch k {
	case PermissionDenied, NotFound, InvalidState, InsufficientQuantity, AmbiguousMatch:
		return true
	}
	return false
}
