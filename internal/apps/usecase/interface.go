// Package usecase implements the application registry business logic.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
)

// ApplicationRepository persists applications. Implementations honor the transaction
// carried by the context.
type ApplicationRepository interface {
	Create(ctx context.Context, app *appsDomain.Application) error
	Get(ctx context.Context, id uuid.UUID) (*appsDomain.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status appsDomain.Status, updatedAt time.Time) error
}

// ApplicationUseCase manages applications and authenticates their API keys.
type ApplicationUseCase interface {
	// Create registers an active application and returns its API key. The key is not
	// recoverable afterwards.
	Create(ctx context.Context, name string) (*appsDomain.CreateApplicationOutput, error)

	// Get retrieves an application by ID.
	Get(ctx context.Context, id uuid.UUID) (*appsDomain.Application, error)

	// UpdateStatus activates or suspends an application.
	UpdateStatus(ctx context.Context, id uuid.UUID, status appsDomain.Status) error

	// Authenticate resolves an "<app_id>.<secret>" API key. Unknown or mismatched keys
	// return ErrInvalidCredentials; suspended applications return ErrApplicationSuspended.
	Authenticate(ctx context.Context, apiKey string) (*appsDomain.Application, error)
}
