package yaerrors

import "errors"

var (
	// ErrTeapot is reported when a nil Error is dereferenced.
	ErrTeapot = errors.New("backend developer is a teapot")

	// ErrPanic is the cause of every Error built from a recovered panic.
	ErrPanic = errors.New("recovered panic")
)
