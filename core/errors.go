package core

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind classifies domain errors so transports can map them without knowing every sentinel.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindLowConfidence
	KindImmutable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationFailed"
	case KindConflict:
		return "Conflict"
	case KindLowConfidence:
		return "LowConfidence"
	case KindImmutable:
		return "Immutable"
	default:
		return "Unknown"
	}
}

// Error is a domain error. Sentinels are declared once per package and compared with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func NewError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func (err *Error) Error() string {
	return err.Message
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error {
	return err.Err
}

// KindOf returns the Kind of err, looking through wrapped errors.
// A ValidationError is always KindValidation, whatever it wraps.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var vErr *ValidationError
	if stderrors.As(err, &vErr) {
		return KindValidation
	}
	var dErr *Error
	if stderrors.As(err, &dErr) {
		return dErr.Kind
	}
	return KindUnknown
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
