package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// History pagination bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// EventConfig holds the retry policy applied by the event store.
type EventConfig struct {
	// MaxRetries is the retry budget of newly published events.
	MaxRetries int
	// RetryInterval is the fixed delay before a retrying event becomes due.
	RetryInterval time.Duration
}

type eventUseCase struct {
	eventRepo    EventRepository
	deliveryRepo DeliveryRepository
	dispatcher   Dispatcher
	cfg          EventConfig
}

// NewEventUseCase creates a new EventUseCase. dispatcher may be nil, in which case
// published events wait for the next scheduler sweep.
func NewEventUseCase(
	eventRepo EventRepository,
	deliveryRepo DeliveryRepository,
	dispatcher Dispatcher,
	cfg EventConfig,
) EventUseCase {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = eventsDomain.DefaultMaxRetries
	}
	return &eventUseCase{
		eventRepo:    eventRepo,
		deliveryRepo: deliveryRepo,
		dispatcher:   dispatcher,
		cfg:          cfg,
	}
}

func (e *eventUseCase) Publish(
	ctx context.Context,
	input eventsDomain.PublishEventInput,
) (*eventsDomain.Event, error) {
	eventType := strings.TrimSpace(input.EventType)
	if eventType == "" {
		return nil, eventsDomain.ErrEventTypeRequired
	}
	if input.Payload == nil {
		return nil, eventsDomain.ErrPayloadRequired
	}

	now := time.Now().UTC()
	event := &eventsDomain.Event{
		ID:          uuid.Must(uuid.NewV7()),
		EventType:   eventType,
		SourceAppID: input.SourceAppID,
		Payload:     input.Payload,
		Status:      eventsDomain.EventStatusPending,
		MaxRetries:  e.cfg.MaxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.ScheduledFor != nil {
		scheduledFor := input.ScheduledFor.UTC()
		event.ScheduledFor = &scheduledFor
	}

	if err := e.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	if e.dispatcher != nil && event.IsDue(now) {
		e.dispatcher.Submit(ctx, event.ID)
	}

	return event, nil
}

func (e *eventUseCase) DueEvents(ctx context.Context, limit int) ([]*eventsDomain.Event, error) {
	if limit <= 0 {
		return []*eventsDomain.Event{}, nil
	}
	return e.eventRepo.ListDue(ctx, time.Now().UTC(), limit)
}

func (e *eventUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	status eventsDomain.EventStatus,
	errorMessage *string,
) error {
	return e.transition(ctx, id, uuid.Nil, status, errorMessage)
}

func (e *eventUseCase) Claim(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	claim := uuid.New()
	if err := e.transition(ctx, id, claim, eventsDomain.EventStatusProcessing, nil); err != nil {
		return uuid.Nil, err
	}
	return claim, nil
}

func (e *eventUseCase) Heartbeat(ctx context.Context, id, claim uuid.UUID) error {
	held, err := e.eventRepo.Heartbeat(ctx, id, claim, time.Now().UTC())
	if err != nil {
		return err
	}
	if !held {
		return eventsDomain.ErrClaimLost
	}
	return nil
}

func (e *eventUseCase) Settle(
	ctx context.Context,
	id, claim uuid.UUID,
	status eventsDomain.EventStatus,
	errorMessage *string,
) error {
	if claim == uuid.Nil || status == eventsDomain.EventStatusProcessing {
		return eventsDomain.ErrInvalidTransition
	}
	err := e.transition(ctx, id, claim, status, errorMessage)
	if errors.Is(err, eventsDomain.ErrInvalidTransition) {
		return eventsDomain.ErrClaimLost
	}
	return err
}

// transition applies status. A non-nil claim is stored when entering processing and
// required when leaving it.
func (e *eventUseCase) transition(
	ctx context.Context,
	id, claim uuid.UUID,
	status eventsDomain.EventStatus,
	errorMessage *string,
) error {
	prior := eventsDomain.AllowedPriorStates(status)
	if len(prior) == 0 {
		return eventsDomain.ErrInvalidTransition
	}
	if claim != uuid.Nil && status != eventsDomain.EventStatusProcessing {
		prior = []eventsDomain.EventStatus{eventsDomain.EventStatusProcessing}
	}

	now := time.Now().UTC()
	update := eventsDomain.StatusUpdate{
		ID:           id,
		From:         prior,
		To:           status,
		Claim:        claim,
		ErrorMessage: errorMessage,
		UpdatedAt:    now,
	}

	switch status {
	case eventsDomain.EventStatusProcessing:
		update.DueAt = &now
	case eventsDomain.EventStatusRetrying:
		next := now.Add(e.cfg.RetryInterval)
		update.IncrementRetry = true
		update.ScheduledFor = &next
	default:
		update.ProcessedAt = &now
	}

	updated, err := e.eventRepo.UpdateStatus(ctx, update)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	// Nothing matched: tell the caller why.
	event, err := e.eventRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if update.IncrementRetry && slices.Contains(prior, event.Status) && !event.CanRetry() {
		return eventsDomain.ErrRetryBudgetExhausted
	}
	return eventsDomain.ErrInvalidTransition
}

func (e *eventUseCase) History(
	ctx context.Context,
	filter eventsDomain.HistoryFilter,
) ([]*eventsDomain.Event, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := e.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.eventRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (e *eventUseCase) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error) {
	return e.eventRepo.Get(ctx, id)
}

func (e *eventUseCase) ListDeliveries(
	ctx context.Context,
	eventID uuid.UUID,
) ([]*eventsDomain.DeliveryRecord, error) {
	if _, err := e.eventRepo.Get(ctx, eventID); err != nil {
		return nil, err
	}
	return e.deliveryRepo.ListByEvent(ctx, eventID)
}

func (e *eventUseCase) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := time.Now().UTC()
	return e.eventRepo.ReclaimStale(ctx, now.Add(-olderThan), now)
}
