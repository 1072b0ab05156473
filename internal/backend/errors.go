package backend

import "errors"

// invocationError wraps a runtime failure during a backend call so the HTTP
// layer can distinguish it from validation and lookup errors.
type invocationError struct{ err error }

func (e invocationError) Error() string { return "backend invocation failed: " + e.err.Error() }
func (e invocationError) Unwrap() error { return e.err }

// ErrInvocation wraps err as a backend invocation failure.
func ErrInvocation(err error) error {
	if err == nil {
		return nil
	}
	return invocationError{err: err}
}

// IsInvocationFailed reports whether err originated inside a backend call.
func IsInvocationFailed(err error) bool {
	var e invocationError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing runtime dependency (e.g. a
// build without the llama tag) so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
