package domain

import (
	"github.com/allisson/eventhub/internal/errors"
)

// Event and subscription errors.
var (
	// ErrEventNotFound indicates no event exists with the given ID.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "event not found")

	// ErrSubscriptionNotFound indicates no subscription exists with the given ID.
	ErrSubscriptionNotFound = errors.Wrap(errors.ErrNotFound, "subscription not found")

	// ErrInvalidTransition indicates the event is not in a state the transition may leave.
	ErrInvalidTransition = errors.Wrap(errors.ErrConflict, "invalid event status transition")

	// ErrClaimLost indicates the worker no longer holds the processing claim on an event,
	// usually because stale recovery handed the event to another worker.
	ErrClaimLost = errors.Wrap(errors.ErrConflict, "event claim lost")

	// ErrRetryBudgetExhausted indicates a retry was requested after max_retries was reached.
	ErrRetryBudgetExhausted = errors.Wrap(errors.ErrConflict, "retry budget exhausted")

	ErrEventTypeRequired   = errors.Wrap(errors.ErrInvalidInput, "event_type is required")
	ErrPayloadRequired     = errors.Wrap(errors.ErrInvalidInput, "payload is required")
	ErrWebhookURLRequired  = errors.Wrap(errors.ErrInvalidInput, "webhook_url is required")
	ErrInvalidEventStatus  = errors.Wrap(errors.ErrInvalidInput, "invalid event status")
	ErrInvalidDeliveryMode = errors.Wrap(errors.ErrInvalidInput, "delivery_mode must be one of: sync, async, batch")
)
