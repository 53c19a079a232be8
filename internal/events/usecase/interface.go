// Package usecase implements event publication, subscription management, webhook
// delivery and due-event scheduling.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// EventRepository persists events. Implementations honor the transaction carried by the
// context.
type EventRepository interface {
	Create(ctx context.Context, event *eventsDomain.Event) error
	Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*eventsDomain.Event, error)
	// UpdateStatus applies update only when its conditions hold and reports whether a
	// row changed.
	UpdateStatus(ctx context.Context, update eventsDomain.StatusUpdate) (bool, error)
	// Heartbeat refreshes a processing event held under claim and reports whether the
	// claim is still held.
	Heartbeat(ctx context.Context, id, claim uuid.UUID, now time.Time) (bool, error)
	ReclaimStale(ctx context.Context, cutoff, now time.Time) (int64, error)
	List(ctx context.Context, filter eventsDomain.HistoryFilter) ([]*eventsDomain.Event, error)
	Count(ctx context.Context, filter eventsDomain.HistoryFilter) (int, error)
}

// SubscriptionRepository persists subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *eventsDomain.Subscription) error
	Update(ctx context.Context, sub *eventsDomain.Subscription) error
	Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Subscription, error)
	GetByKey(
		ctx context.Context,
		appID uuid.UUID,
		eventType, webhookURL string,
	) (*eventsDomain.Subscription, error)
	Deactivate(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListActiveByEventType(ctx context.Context, eventType string) ([]*eventsDomain.Subscription, error)
	ListByApp(ctx context.Context, appID uuid.UUID, offset, limit int) ([]*eventsDomain.Subscription, error)
	CountByApp(ctx context.Context, appID uuid.UUID) (int, error)
}

// DeliveryRepository persists the append-only delivery log.
type DeliveryRepository interface {
	Create(ctx context.Context, record *eventsDomain.DeliveryRecord) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*eventsDomain.DeliveryRecord, error)
}

// Dispatcher hands an event to in-process delivery. Submit reports whether the event was
// accepted; a rejected event is picked up by a later sweep.
type Dispatcher interface {
	Submit(ctx context.Context, eventID uuid.UUID) bool
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, eventID uuid.UUID) bool

// Submit calls f.
func (f DispatcherFunc) Submit(ctx context.Context, eventID uuid.UUID) bool {
	return f(ctx, eventID)
}

// EventUseCase is the event store.
type EventUseCase interface {
	// Publish stores a pending event and dispatches it right away unless it is scheduled
	// in the future.
	Publish(ctx context.Context, input eventsDomain.PublishEventInput) (*eventsDomain.Event, error)

	// DueEvents returns up to limit pending or retrying events whose schedule has passed,
	// oldest first.
	DueEvents(ctx context.Context, limit int) ([]*eventsDomain.Event, error)

	// Transition moves an event to status. It returns ErrEventNotFound when the event is
	// absent, ErrInvalidTransition when it is not in an allowed prior state and
	// ErrRetryBudgetExhausted when a retry is requested after max_retries.
	Transition(ctx context.Context, id uuid.UUID, status eventsDomain.EventStatus, errorMessage *string) error

	// Claim moves a due event to processing under a fresh claim token and returns it.
	// Errors are those of Transition.
	Claim(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

	// Heartbeat keeps a claim alive so stale recovery leaves the event alone. It returns
	// ErrClaimLost once the claim is no longer held.
	Heartbeat(ctx context.Context, id, claim uuid.UUID) error

	// Settle moves a claimed event out of processing. It returns ErrClaimLost when claim
	// is no longer held and ErrRetryBudgetExhausted when a retry is requested after
	// max_retries.
	Settle(
		ctx context.Context,
		id, claim uuid.UUID,
		status eventsDomain.EventStatus,
		errorMessage *string,
	) error

	// History returns a page of events and the total number matching filter.
	History(ctx context.Context, filter eventsDomain.HistoryFilter) ([]*eventsDomain.Event, int, error)

	Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error)

	ListDeliveries(ctx context.Context, eventID uuid.UUID) ([]*eventsDomain.DeliveryRecord, error)

	// RecoverStale returns events whose processing heartbeat stopped more than olderThan
	// ago to the retry path and revokes their claim.
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SubscriptionUseCase is the subscription registry.
type SubscriptionUseCase interface {
	// Subscribe creates a subscription or reactivates the existing one with the same
	// application, event type and webhook URL.
	Subscribe(ctx context.Context, input eventsDomain.SubscribeInput) (*eventsDomain.SubscribeOutput, error)

	// Unsubscribe deactivates a subscription and reports whether it existed.
	Unsubscribe(ctx context.Context, id uuid.UUID) (bool, error)

	// ActiveSubscriptions returns every active subscription for eventType without
	// applying filters.
	ActiveSubscriptions(ctx context.Context, eventType string) ([]*eventsDomain.Subscription, error)

	Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Subscription, error)

	ListByApp(ctx context.Context, appID uuid.UUID, offset, limit int) ([]*eventsDomain.Subscription, int, error)
}

// DeliveryEngine delivers one event to its matching subscribers.
type DeliveryEngine interface {
	// Process claims the event and fans it out. An event that cannot be claimed is a
	// no-op. Only engine faults are returned; subscriber failures are recorded.
	Process(ctx context.Context, eventID uuid.UUID) error
}
