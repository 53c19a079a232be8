package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func TestApplicationUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	repo := &mockApplicationRepository{}
	bm := &mockBusinessMetrics{}
	uc := NewApplicationUseCaseWithMetrics(NewApplicationUseCase(repo, &mockKeyService{}), bm)

	id := uuid.New()
	repo.On("Get", ctx, id).Return(&appsDomain.Application{ID: id}, nil).Once()
	bm.On("RecordOperation", ctx, "apps", "app_get", "success").Once()
	bm.On("RecordDuration", ctx, "apps", "app_get", mock.Anything, "success").Once()

	_, err := uc.Get(ctx, id)
	assert.NoError(t, err)

	bm.On("RecordOperation", ctx, "apps", "app_authenticate", "error").Once()
	bm.On("RecordDuration", ctx, "apps", "app_authenticate", mock.Anything, "error").Once()

	_, err = uc.Authenticate(ctx, "garbage")
	assert.Error(t, err)

	bm.AssertExpectations(t)
	repo.AssertExpectations(t)
}
