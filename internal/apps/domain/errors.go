package domain

import (
	"github.com/allisson/eventhub/internal/errors"
)

// Application registry errors.
var (
	// ErrApplicationNotFound indicates no application exists with the given ID.
	ErrApplicationNotFound = errors.Wrap(errors.ErrNotFound, "application not found")

	// ErrApplicationSuspended indicates the application exists but may not use the API.
	ErrApplicationSuspended = errors.Wrap(errors.ErrForbidden, "application suspended")

	// ErrInvalidCredentials indicates a malformed or unknown API key.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid api key")

	// ErrInvalidStatus indicates a status outside of active and suspended.
	ErrInvalidStatus = errors.Wrap(errors.ErrInvalidInput, "status must be one of: active, suspended")

	// ErrNameRequired indicates an empty application name.
	ErrNameRequired = errors.Wrap(errors.ErrInvalidInput, "name is required")
)
