package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	dbMocks "github.com/allisson/eventhub/internal/database/mocks"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

func TestEventUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	repo := &mockEventRepository{}
	bm := &mockBusinessMetrics{}
	uc := NewEventUseCaseWithMetrics(NewEventUseCase(repo, &mockDeliveryRepository{}, nil, testEventConfig), bm)

	id := uuid.New()
	repo.On("Get", ctx, id).Return(&eventsDomain.Event{ID: id}, nil).Once()
	bm.On("RecordOperation", ctx, "events", "event_get", "success").Once()
	bm.On("RecordDuration", ctx, "events", "event_get", mock.Anything, "success").Once()

	_, err := uc.Get(ctx, id)
	assert.NoError(t, err)

	bm.On("RecordOperation", ctx, "events", "event_publish", "error").Once()
	bm.On("RecordDuration", ctx, "events", "event_publish", mock.Anything, "error").Once()

	_, err = uc.Publish(ctx, eventsDomain.PublishEventInput{})
	assert.Error(t, err)

	claim := uuid.New()
	repo.On("Heartbeat", ctx, id, claim, mock.Anything).Return(false, nil).Once()
	bm.On("RecordOperation", ctx, "events", "event_heartbeat", "error").Once()
	bm.On("RecordDuration", ctx, "events", "event_heartbeat", mock.Anything, "error").Once()

	assert.ErrorIs(t, uc.Heartbeat(ctx, id, claim), eventsDomain.ErrClaimLost)

	bm.On("RecordOperation", ctx, "events", "event_settle", "error").Once()
	bm.On("RecordDuration", ctx, "events", "event_settle", mock.Anything, "error").Once()

	assert.ErrorIs(t, uc.Settle(ctx, id, uuid.Nil, eventsDomain.EventStatusCompleted, nil),
		eventsDomain.ErrInvalidTransition)

	bm.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestSubscriptionUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	repo := &mockSubscriptionRepository{}
	bm := &mockBusinessMetrics{}
	uc := NewSubscriptionUseCaseWithMetrics(
		NewSubscriptionUseCase(dbMocks.NewMockTxManager(t), repo, &mockSealer{}),
		bm,
	)

	id := uuid.New()
	repo.On("Deactivate", ctx, id, mock.Anything).Return(true, nil).Once()
	bm.On("RecordOperation", ctx, "events", "subscription_unsubscribe", "success").Once()
	bm.On("RecordDuration", ctx, "events", "subscription_unsubscribe", mock.Anything, "success").Once()

	existed, err := uc.Unsubscribe(ctx, id)
	assert.NoError(t, err)
	assert.True(t, existed)

	bm.AssertExpectations(t)
	repo.AssertExpectations(t)
}
