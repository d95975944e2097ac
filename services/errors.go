package services

import (
	"errors"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	// KindForbidden: the record exists but belongs to someone else.
	KindForbidden
	KindNotFound
)

// Error is what services return for anything a client can act on. Message
// is safe to show; Err is the cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Details []string
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

// KindOf reports the kind of err; errors not produced by a service are
// internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationError(details []string) *Error {
	return &Error{Kind: KindValidation, Message: strings.Join(details, ", "), Details: details}
}

func notFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Server error", Err: err}
}

// validator collects field messages in order.
type validator struct {
	errs []string
}

func (v *validator) check(ok bool, message string) {
	if !ok {
		v.errs = append(v.errs, message)
	}
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return validationError(v.errs)
}
