package submission

import (
	"errors"
	"fmt"
)

// Kind classifies a failed submission.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindRateLimited   Kind = "rate_limited"
	KindUnavailable   Kind = "unavailable"
	KindInProgress    Kind = "in_progress"
)

// Sentinel errors, one per kind. A *Error matches the sentinel of its kind
// with errors.Is.
var (
	ErrConfiguration = errors.New("submission: configuration error")
	ErrValidation    = errors.New("submission: validation error")
	ErrRateLimited   = errors.New("submission: rate limited")
	ErrUnavailable   = errors.New("submission: provider unavailable")
	ErrInProgress    = errors.New("submission: already in progress")
)

// User-facing messages. These are the only texts that reach callers apart
// from validation messages echoed from the mailing list provider.
const (
	MsgEmailRequired    = "Email is required"
	MsgInvalidEmail     = "Invalid email address"
	MsgConfiguration    = "Service configuration error. Please try again later."
	MsgRateLimited      = "Too many attempts. Please try again shortly."
	MsgSignupFailed     = "Unable to complete signup. Please try again later."
	MsgSubmissionFailed = "Failed to save submission. Try again later."
	MsgInProgress       = "A submission for this email is already in progress."
	MsgUnexpected       = "Something went wrong. Please try again later."
)

// Error is a classified submission failure. Message is safe to show to
// users; Err keeps the underlying cause for logs.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && sentinel(e.Kind) == target
}

func sentinel(k Kind) error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindValidation:
		return ErrValidation
	case KindRateLimited:
		return ErrRateLimited
	case KindUnavailable:
		return ErrUnavailable
	case KindInProgress:
		return ErrInProgress
	default:
		return nil
	}
}

func newError(op string, kind Kind, msg string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Message: msg, Err: cause}
}

// KindOf returns the kind of a submission error. Unclassified errors are
// reported as unavailable.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnavailable
}

// UserMessage returns the text that may be shown for err.
func UserMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return MsgUnexpected
}
