// Package common defines sentinel errors shared by the storage, service and
// transport layers. Callers should match them with errors.Is.
package common

import "errors"

var (
	// ErrValidation reports malformed or out-of-range input.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized reports a missing, malformed or expired session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by login for both an unknown
	// username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrConflict reports a duplicate username.
	ErrConflict = errors.New("already exists")
	// ErrNotFound reports an operation on an absent record.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable reports that a store could not be opened or
	// prepared. It is retryable.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInternal covers everything else.
	ErrInternal = errors.New("internal error")
)
