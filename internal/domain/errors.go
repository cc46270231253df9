package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of the transport that reports it.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidArgument
	KindConflict
	KindInsufficientStock
	KindEmptyCart
	KindUnauthorized
	KindForbidden
	KindInvalidTransition
	KindInvalidState
	KindUpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindEmptyCart:
		return "empty_cart"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindInvalidState:
		return "invalid_state"
	case KindUpstreamFailure:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// Error is the error type returned by the service layer. Message is safe to
// show to API clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrNotFound) holds for
// every NotFound error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrEmptyCart         = &Error{Kind: KindEmptyCart}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrUpstreamFailure   = &Error{Kind: KindUpstreamFailure}
)

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func InvalidArgument(format string, args ...any) error {
	return newError(KindInvalidArgument, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func InsufficientStock(format string, args ...any) error {
	return newError(KindInsufficientStock, format, args...)
}

func EmptyCart(format string, args ...any) error {
	return newError(KindEmptyCart, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newError(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func InvalidTransition(format string, args ...any) error {
	return newError(KindInvalidTransition, format, args...)
}

func InvalidState(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

// UpstreamFailure wraps a payment gateway error.
func UpstreamFailure(err error, format string, args ...any) error {
	return &Error{Kind: KindUpstreamFailure, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err, KindInternal for errors that did not
// originate in the domain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err. Internal errors never
// leak their cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.String()
	}
	return "internal server error"
}
