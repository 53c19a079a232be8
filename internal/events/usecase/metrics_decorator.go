package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
	"github.com/allisson/eventhub/internal/metrics"
)

func recordOperation(
	ctx context.Context,
	m metrics.BusinessMetrics,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RecordOperation(ctx, "events", operation, status)
	m.RecordDuration(ctx, "events", operation, time.Since(start), status)
}

type eventUseCaseWithMetrics struct {
	next    EventUseCase
	metrics metrics.BusinessMetrics
}

// NewEventUseCaseWithMetrics wraps an EventUseCase with metrics recording.
func NewEventUseCaseWithMetrics(useCase EventUseCase, m metrics.BusinessMetrics) EventUseCase {
	return &eventUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (e *eventUseCaseWithMetrics) Publish(
	ctx context.Context,
	input eventsDomain.PublishEventInput,
) (*eventsDomain.Event, error) {
	start := time.Now()
	event, err := e.next.Publish(ctx, input)
	recordOperation(ctx, e.metrics, "event_publish", start, err)
	return event, err
}

func (e *eventUseCaseWithMetrics) DueEvents(ctx context.Context, limit int) ([]*eventsDomain.Event, error) {
	start := time.Now()
	events, err := e.next.DueEvents(ctx, limit)
	recordOperation(ctx, e.metrics, "event_due", start, err)
	return events, err
}

func (e *eventUseCaseWithMetrics) Transition(
	ctx context.Context,
	id uuid.UUID,
	status eventsDomain.EventStatus,
	errorMessage *string,
) error {
	start := time.Now()
	err := e.next.Transition(ctx, id, status, errorMessage)
	recordOperation(ctx, e.metrics, "event_transition", start, err)
	return err
}

func (e *eventUseCaseWithMetrics) Claim(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	start := time.Now()
	claim, err := e.next.Claim(ctx, id)
	recordOperation(ctx, e.metrics, "event_claim", start, err)
	return claim, err
}

func (e *eventUseCaseWithMetrics) Heartbeat(ctx context.Context, id, claim uuid.UUID) error {
	start := time.Now()
	err := e.next.Heartbeat(ctx, id, claim)
	recordOperation(ctx, e.metrics, "event_heartbeat", start, err)
	return err
}

func (e *eventUseCaseWithMetrics) Settle(
	ctx context.Context,
	id, claim uuid.UUID,
	status eventsDomain.EventStatus,
	errorMessage *string,
) error {
	start := time.Now()
	err := e.next.Settle(ctx, id, claim, status, errorMessage)
	recordOperation(ctx, e.metrics, "event_settle", start, err)
	return err
}

func (e *eventUseCaseWithMetrics) History(
	ctx context.Context,
	filter eventsDomain.HistoryFilter,
) ([]*eventsDomain.Event, int, error) {
	start := time.Now()
	events, total, err := e.next.History(ctx, filter)
	recordOperation(ctx, e.metrics, "event_history", start, err)
	return events, total, err
}

func (e *eventUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error) {
	start := time.Now()
	event, err := e.next.Get(ctx, id)
	recordOperation(ctx, e.metrics, "event_get", start, err)
	return event, err
}

func (e *eventUseCaseWithMetrics) ListDeliveries(
	ctx context.Context,
	eventID uuid.UUID,
) ([]*eventsDomain.DeliveryRecord, error) {
	start := time.Now()
	records, err := e.next.ListDeliveries(ctx, eventID)
	recordOperation(ctx, e.metrics, "event_list_deliveries", start, err)
	return records, err
}

func (e *eventUseCaseWithMetrics) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	start := time.Now()
	n, err := e.next.RecoverStale(ctx, olderThan)
	recordOperation(ctx, e.metrics, "event_recover_stale", start, err)
	return n, err
}

type subscriptionUseCaseWithMetrics struct {
	next    SubscriptionUseCase
	metrics metrics.BusinessMetrics
}

// NewSubscriptionUseCaseWithMetrics wraps a SubscriptionUseCase with metrics recording.
func NewSubscriptionUseCaseWithMetrics(useCase SubscriptionUseCase, m metrics.BusinessMetrics) SubscriptionUseCase {
	return &subscriptionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *subscriptionUseCaseWithMetrics) Subscribe(
	ctx context.Context,
	input eventsDomain.SubscribeInput,
) (*eventsDomain.SubscribeOutput, error) {
	start := time.Now()
	output, err := s.next.Subscribe(ctx, input)
	recordOperation(ctx, s.metrics, "subscription_subscribe", start, err)
	return output, err
}

func (s *subscriptionUseCaseWithMetrics) Unsubscribe(ctx context.Context, id uuid.UUID) (bool, error) {
	start := time.Now()
	existed, err := s.next.Unsubscribe(ctx, id)
	recordOperation(ctx, s.metrics, "subscription_unsubscribe", start, err)
	return existed, err
}

func (s *subscriptionUseCaseWithMetrics) ActiveSubscriptions(
	ctx context.Context,
	eventType string,
) ([]*eventsDomain.Subscription, error) {
	start := time.Now()
	subs, err := s.next.ActiveSubscriptions(ctx, eventType)
	recordOperation(ctx, s.metrics, "subscription_list_active", start, err)
	return subs, err
}

func (s *subscriptionUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Subscription, error) {
	start := time.Now()
	sub, err := s.next.Get(ctx, id)
	recordOperation(ctx, s.metrics, "subscription_get", start, err)
	return sub, err
}

func (s *subscriptionUseCaseWithMetrics) ListByApp(
	ctx context.Context,
	appID uuid.UUID,
	offset, limit int,
) ([]*eventsDomain.Subscription, int, error) {
	start := time.Now()
	subs, total, err := s.next.ListByApp(ctx, appID, offset, limit)
	recordOperation(ctx, s.metrics, "subscription_list", start, err)
	return subs, total, err
}
