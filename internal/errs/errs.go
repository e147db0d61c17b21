package errs

import (
	"errors"
	"fmt"
)

type Code string

const (
	ConfigurationMissing Code = "CONFIGURATION_MISSING"
	BackendUnavailable   Code = "BACKEND_UNAVAILABLE"
	BackendError         Code = "BACKEND_ERROR"
	InputRejected        Code = "INPUT_REJECTED"
)

// Error is the error type surfaced by the pipeline and its backends.
type Error struct {
	Code   Code
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Public renders err for end users: code and reason only, never the wrapped
// cause. Errors outside the taxonomy collapse to a generic message.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return fmt.Sprintf("%s (%s)", e.Code, e.Reason)
	}
	return "internal error"
}
