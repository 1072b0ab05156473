package prompt

import "fmt"

// invalidRoleError signals an unrecognized wire role for 400 mapping.
type invalidRoleError struct{ role string }

func (e invalidRoleError) Error() string { return "invalid message role: " + e.role }

// IsInvalidRole reports whether err indicates an unrecognized message role.
func IsInvalidRole(err error) bool {
	_, ok := err.(invalidRoleError)
	return ok
}

// contextLimitError signals that a conversation cannot be trimmed under the
// token budget without touching protected messages.
type contextLimitError struct {
	limit  int
	actual int
}

func (e contextLimitError) Error() string {
	return fmt.Sprintf("context limit exceeded: %d tokens estimated, limit %d", e.actual, e.limit)
}

// ErrContextLimit constructs a contextLimitError.
func ErrContextLimit(limit, actual int) error { return contextLimitError{limit: limit, actual: actual} }

// IsContextLimitExceeded reports whether err indicates an untrimmable conversation.
func IsContextLimitExceeded(err error) bool {
	_, ok := err.(contextLimitError)
	return ok
}

// ContextLimit extracts the limit and estimate from a contextLimitError.
func ContextLimit(err error) (limit, actual int, ok bool) {
	e, ok := err.(contextLimitError)
	if !ok {
		return 0, 0, false
	}
	return e.limit, e.actual, true
}
