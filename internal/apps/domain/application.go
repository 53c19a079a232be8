// Package domain defines the application registry model. Applications are the tenants of
// the hub: they publish events, own subscriptions and authenticate with an API key.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an application.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Application is a registered tenant.
type Application struct {
	ID         uuid.UUID
	Name       string
	Status     Status
	APIKeyHash string //nolint:gosec // Argon2id hash, never the plain key
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive reports whether the application may use the API.
func (a *Application) IsActive() bool {
	return a.Status == StatusActive
}

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusSuspended:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// CreateApplicationOutput carries the plain API key, shown exactly once.
type CreateApplicationOutput struct {
	ID     uuid.UUID
	APIKey string //nolint:gosec // returned once to the operator
}

// FormatAPIKey builds the bearer credential "<app_id>.<secret>".
func FormatAPIKey(id uuid.UUID, secret string) string {
	return id.String() + "." + secret
}

// ParseAPIKey splits a bearer credential into application id and secret.
func ParseAPIKey(key string) (uuid.UUID, string, error) {
	idPart, secret, ok := strings.Cut(key, ".")
	if !ok || secret == "" {
		return uuid.Nil, "", ErrInvalidCredentials
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", ErrInvalidCredentials
	}
	return id, secret, nil
}
