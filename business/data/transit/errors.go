package transit

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures the stop monitor recovers from
type ErrorKind int

const (
	UnknownError ErrorKind = iota
	// InvalidInput coordinates or radius out of bounds or not numeric, detected before any network call
	InvalidInput
	// UpstreamUnavailable transport failure, non-2xx response or malformed payload from the transit api
	UpstreamUnavailable
	// PersistenceWriteFailure the monitored stop snapshot could not be saved
	PersistenceWriteFailure
	// PersistenceReadFailure the monitored stop snapshot could not be loaded
	PersistenceReadFailure
)

// String implements Stringer interface for ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case UpstreamUnavailable:
		return "UpstreamUnavailable"
	case PersistenceWriteFailure:
		return "PersistenceWriteFailure"
	case PersistenceReadFailure:
		return "PersistenceReadFailure"
	}
	return "UnknownError"
}

// Error is returned by the stop monitor components with the ErrorKind of the failure.
// Field is only set for InvalidInput.
type Error struct {
	Kind  ErrorKind
	Op    string
	Field string
	Err   error
}

// Error implements error interface
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: invalid %s: %v", e.Op, e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds Error
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// InvalidField builds an InvalidInput Error for field
func InvalidField(op string, field string, message string) *Error {
	return &Error{Kind: InvalidInput, Op: op, Field: field, Err: errors.New(message)}
}

// KindOf returns the ErrorKind of the first Error found in err's chain, UnknownError if none is present
func KindOf(err error) ErrorKind {
	var transitErr *Error
	if errors.As(err, &transitErr) {
		return transitErr.Kind
	}
	return UnknownError
}

// IsKind returns true if err carries ErrorKind kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
