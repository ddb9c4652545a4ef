// Package common defines sentinel errors shared by the repository, service and
// transport layers of quillpost. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Session token errors. Verification never says why a token was rejected.
	ErrInvalidToken = errors.New("invalid token")
)
