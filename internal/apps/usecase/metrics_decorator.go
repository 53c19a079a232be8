package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
	"github.com/allisson/eventhub/internal/metrics"
)

type applicationUseCaseWithMetrics struct {
	next    ApplicationUseCase
	metrics metrics.BusinessMetrics
}

// NewApplicationUseCaseWithMetrics wraps an ApplicationUseCase with metrics recording.
func NewApplicationUseCaseWithMetrics(useCase ApplicationUseCase, m metrics.BusinessMetrics) ApplicationUseCase {
	return &applicationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *applicationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordOperation(ctx, "apps", operation, status)
	a.metrics.RecordDuration(ctx, "apps", operation, time.Since(start), status)
}

func (a *applicationUseCaseWithMetrics) Create(
	ctx context.Context,
	name string,
) (*appsDomain.CreateApplicationOutput, error) {
	start := time.Now()
	output, err := a.next.Create(ctx, name)
	a.record(ctx, "app_create", start, err)
	return output, err
}

func (a *applicationUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*appsDomain.Application, error) {
	start := time.Now()
	app, err := a.next.Get(ctx, id)
	a.record(ctx, "app_get", start, err)
	return app, err
}

func (a *applicationUseCaseWithMetrics) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status appsDomain.Status,
) error {
	start := time.Now()
	err := a.next.UpdateStatus(ctx, id, status)
	a.record(ctx, "app_update_status", start, err)
	return err
}

func (a *applicationUseCaseWithMetrics) Authenticate(
	ctx context.Context,
	apiKey string,
) (*appsDomain.Application, error) {
	start := time.Now()
	app, err := a.next.Authenticate(ctx, apiKey)
	a.record(ctx, "app_authenticate", start, err)
	return app, err
}
