package runtest

import (
	"errors"
	"fmt"
)

// RuntimeError aborts a run with exitcodes.RuntimeErr. It wraps a test binary
// that could not be spawned (missing, not executable, or a canceled run), or
// a failure to set up the runner or its side servers. A test binary that
// exits non-zero is never a RuntimeError.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError reports whether err carries a RuntimeError anywhere in its
// chain, including inside errors.Join results built by cliapp.
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}
