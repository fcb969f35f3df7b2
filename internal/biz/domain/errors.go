package domain

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// ErrorKind classifies errors for the transport layers
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindExternal   ErrorKind = "external_service"
	KindStore      ErrorKind = "store"
	KindUnknown    ErrorKind = "unknown"
)

// Error is a classified error. Msg is safe to show to clients, Err is not.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a client error for malformed input
func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// NewAuthError creates an authentication error
func NewAuthError(msg string) error {
	return &Error{Kind: KindAuth, Msg: msg}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// NewExternalError wraps a failure of an external service (LLM, embeddings)
func NewExternalError(op string, err error) error {
	return &Error{Kind: KindExternal, Msg: op, Err: err}
}

// NewStoreError wraps a persistence failure with a stack trace for server-side logs
func NewStoreError(op string, err error) error {
	return &Error{Kind: KindStore, Msg: op, Err: pkgerrors.WithStack(err)}
}

// KindOf returns the kind of err, or KindUnknown if it is not classified
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the client-safe message of a classified error
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
