package apperrors

import (
	"errors"
	"strings"
)

// appError is the concrete Error implementation.
type appError struct {
	msg           string  // primary error message
	base          error   // base error for errors.Is/As compatibility
	wrappedErrors []error // additional wrapped errors
	statuscode    int     // HTTP status code
	expandError   bool    // controls error message expansion
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by all wrapped errors when expansion
// is enabled, otherwise just the message.
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.wrappedErrors {
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

// Msg derives an error with a new message that wraps the original.
// The status code is inherited.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, e.wrappedErrors...),
		statuscode:    e.statuscode,
	}
}

// New derives a fresh error using the current error as a template. The new
// error inherits the status code and matches the template via errors.Is.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

// MsgErr derives an error with a new message wrapping both the original and
// any additional errors.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
	}
}

// Err derives an error that keeps the original message and attaches
// additional wrapped errors.
func (e *appError) Err(errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
	}
}

// SetExpandError returns a copy with an updated expansion flag.
func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

// SetStatusCode returns a copy with an updated status code.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

// New creates a root-level error with the given message. Packages declare
// their error roots with this and derive the rest.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}

// Is reports whether the error matches the target by checking the base error
// and all wrapped errors.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
