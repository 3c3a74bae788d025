package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound marks the distinguished "no such record" outcome of a backend
// lookup. Callers branch on it with errors.Is; any other error from a
// backend call is treated as transient and retryable.
var ErrNotFound = errors.New("not found")

// ValidationError is a local-only rejection of profile input. It never
// reaches the backend and is recoverable by editing the form.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
