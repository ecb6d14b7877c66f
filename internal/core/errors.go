package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrProfileNotFound    = fmt.Errorf("profile %w", ErrNotFound)
	ErrBudgetNotFound     = fmt.Errorf("budget %w", ErrNotFound)
	ErrGoalNotFound       = fmt.Errorf("savings goal %w", ErrNotFound)
	ErrAlreadyInitialized = fmt.Errorf("profile %w", ErrAlreadyExists)
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// StorageError wraps a failure of the underlying database engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// UpstreamFetchError is returned when an external feed is unreachable or answers non-2xx.
type UpstreamFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
