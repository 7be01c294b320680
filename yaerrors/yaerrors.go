// Package yaerrors provides the coded error type used across the bot core.
//
// Every Error carries an HTTP-like status code, the original cause and a
// human-readable traceback that grows with each Wrap call on the way up the
// call stack.
package yaerrors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/hashicorp/go-multierror"
)

// Error is the error type returned by every package of the bot core.
type Error interface {
	error
	Wrap(msg string) Error
	WrapWithLog(msg string, log yalogger.Logger) Error
	Code() int
	Unwrap() error
	UnwrapLastError() string
}

const (
	codeSeparate  = " | "
	errorSeparate = " -> "
)

type yaError struct {
	code      int
	cause     error
	traceback string
}

// FromError wraps an existing error with a code and a message.
//
// Example usage:
//
//	return yaerrors.FromError(http.StatusInternalServerError, err, "failed to load roles")
func FromError(code int, cause error, wrap string) Error {
	return &yaError{
		code:      code,
		cause:     cause,
		traceback: fmt.Sprintf("%s: %v", wrap, cause),
	}
}

// FromErrorWithLog is FromError that also logs the resulting message at error level.
func FromErrorWithLog(code int, cause error, wrap string, log yalogger.Logger) Error {
	msg := fmt.Sprintf("%s: %v", wrap, cause)

	log.Error(msg)

	return &yaError{
		code:      code,
		cause:     cause,
		traceback: msg,
	}
}

// FromString builds an Error from a plain message.
func FromString(code int, msg string) Error {
	return &yaError{
		code:      code,
		cause:     errors.New(msg), //nolint:err113
		traceback: msg,
	}
}

// FromStringWithLog is FromString that also logs the message at error level.
func FromStringWithLog(code int, msg string, log yalogger.Logger) Error {
	log.Error(msg)

	return FromString(code, msg)
}

// FromPanic converts a value returned by recover() into an Error whose cause is
// ErrPanic. The traceback holds the panic value and the goroutine stack.
//
// Example usage:
//
//	defer func() {
//		if r := recover(); r != nil {
//			err = yaerrors.FromPanic(r)
//		}
//	}()
func FromPanic(recovered any) Error {
	if err, ok := recovered.(error); ok {
		return &yaError{
			code:      http.StatusInternalServerError,
			cause:     fmt.Errorf("%w: %w", ErrPanic, err),
			traceback: fmt.Sprintf("panic: %v\n%s", err, debug.Stack()),
		}
	}

	return &yaError{
		code:      http.StatusInternalServerError,
		cause:     ErrPanic,
		traceback: fmt.Sprintf("panic: %v\n%s", recovered, debug.Stack()),
	}
}

// Join aggregates several errors into one. Nil entries are skipped and nil is
// returned when nothing is left. The code of the first error is kept.
//
// Example usage:
//
//	err := yaerrors.Join(closeDB(), closeRedis())
func Join(errs ...error) Error {
	var (
		merged *multierror.Error
		code   int
	)

	for _, err := range errs {
		if err == nil {
			continue
		}

		if typed, ok := err.(*yaError); ok && typed == nil {
			continue
		}

		if code == 0 {
			code = http.StatusInternalServerError

			var yaErr Error
			if errors.As(err, &yaErr) {
				code = yaErr.Code()
			}
		}

		merged = multierror.Append(merged, err)
	}

	if merged == nil {
		return nil
	}

	merged.ErrorFormat = func(list []error) string {
		parts := make([]string, 0, len(list))
		for _, err := range list {
			parts = append(parts, err.Error())
		}

		return strings.Join(parts, "; ")
	}

	return &yaError{
		code:      code,
		cause:     merged,
		traceback: fmt.Sprintf("%d errors occurred: %s", len(merged.Errors), merged.Error()),
	}
}

func (e *yaError) Error() string {
	safetyCheck(&e)

	return fmt.Sprintf("%d%s%s", e.code, codeSeparate, e.traceback)
}

func (e *yaError) Unwrap() error {
	safetyCheck(&e)

	return e.cause
}

// UnwrapLastError returns the outermost message of the traceback.
func (e *yaError) UnwrapLastError() string {
	safetyCheck(&e)

	end := strings.Index(e.traceback, errorSeparate)
	if end == -1 {
		return e.traceback
	}

	return e.traceback[:end]
}

// Wrap prepends a message to the traceback. Call it every time the error is
// returned one level up.
func (e *yaError) Wrap(msg string) Error {
	safetyCheck(&e)

	e.traceback = fmt.Sprintf("%s%s%s", msg, errorSeparate, e.traceback)

	return e
}

// WrapWithLog is Wrap that also logs msg at error level.
func (e *yaError) WrapWithLog(msg string, log yalogger.Logger) Error {
	log.Error(msg)

	return e.Wrap(msg)
}

func (e *yaError) Code() int {
	safetyCheck(&e)

	return e.code
}

// safetyCheck replaces a nil receiver with a teapot error so that calling a
// method on a nil Error never panics.
func safetyCheck(err **yaError) {
	if *err == nil {
		*err = &yaError{
			code:      http.StatusTeapot,
			cause:     ErrTeapot,
			traceback: ErrTeapot.Error(),
		}
	}
}
