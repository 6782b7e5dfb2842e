package domain

import "errors"

// Business-level failures raised by the service and repository layers.
// Repositories translate store-level unique constraint violations into the
// same duplicate sentinels the service pre-checks produce, so callers see one
// contract regardless of which path detected the conflict.
var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrVersionConflict   = errors.New("stale version")
)
