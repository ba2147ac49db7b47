package services

import (
	"errors"
	"fmt"

	"github.com/edita-ar/apiserver/internal/store"
)

var (
	// ErrUsernameTaken is returned by Signup when the username is already registered.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrStoreUnavailable wraps persistence timeouts and connectivity failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVisionService wraps failures reported by the vision collaborator.
	ErrVisionService = errors.New("vision service error")

	// ErrVisionNotConfigured is returned when no vision backend is selected.
	ErrVisionNotConfigured = errors.New("vision service is not configured")

	// ErrStorageNotConfigured is returned when no object storage backend is selected.
	ErrStorageNotConfigured = errors.New("image storage is not configured")

	// ErrImageNotFound is returned when an uploaded image does not exist.
	ErrImageNotFound = errors.New("image not found")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func storeError(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
