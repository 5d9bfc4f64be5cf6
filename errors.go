package laurus

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into the taxonomy the engine and its
// sub-packages use for every fallible operation.
type Kind string

const (
	KindIo                 Kind = "io"
	KindIndex              Kind = "index"
	KindSchema             Kind = "schema"
	KindAnalysis           Kind = "analysis"
	KindQuery              Kind = "query"
	KindStorage            Kind = "storage"
	KindField              Kind = "field"
	KindJson               Kind = "json"
	KindInvalidOperation   Kind = "invalid_operation"
	KindResourceExhausted  Kind = "resource_exhausted"
	KindSerializationError Kind = "serialization_error"
	KindOperationCancelled Kind = "operation_cancelled"
	KindNotImplemented     Kind = "not_implemented"
	KindOther              Kind = "other"
)

// Sub-prefixes used within KindOther messages, per spec.md §6.
const (
	SubInvalidArgument = "invalid argument"
	SubInvalidConfig   = "invalid config"
	SubNotFound        = "not found"
	SubTimeout         = "timeout"
)

// Error is the unified error type returned across package boundaries.
// It carries a Kind for programmatic dispatch and an optional Cause for
// error-chain support, modeled on the teacher's AmanError but collapsed
// to the taxonomy spec.md §6 actually names (see SPEC_FULL.md, §7).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind to an existing error, reusing err's text as the
// message.
// A nil err yields a nil *Error (so callers can `return laurus.Wrap(...)`
// unconditionally after an `if err != nil` check without double-wrapping).
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Cause: err}
}

// WrapMessage attaches kind, a message, and an underlying cause.
func WrapMessage(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf extracts the Kind from err, or KindOther if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}
