// Package domain defines the event publication and webhook delivery model: events and
// their lifecycle, subscriptions, delivery records and the payload matcher.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusPending    EventStatus = "pending"
	EventStatusProcessing EventStatus = "processing"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusFailed     EventStatus = "failed"
	EventStatusRetrying   EventStatus = "retrying"
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 3

// allowedPriorStates lists, for each target status, the states it may be entered from.
// Terminal states never appear as a prior state.
var allowedPriorStates = map[EventStatus][]EventStatus{
	EventStatusProcessing: {EventStatusPending, EventStatusRetrying},
	EventStatusCompleted:  {EventStatusProcessing},
	EventStatusRetrying:   {EventStatusProcessing},
	EventStatusFailed:     {EventStatusProcessing, EventStatusRetrying},
}

// ParseEventStatus validates s as an EventStatus.
func ParseEventStatus(s string) (EventStatus, error) {
	switch st := EventStatus(s); st {
	case EventStatusPending, EventStatusProcessing, EventStatusCompleted, EventStatusFailed, EventStatusRetrying:
		return st, nil
	}
	return "", ErrInvalidEventStatus
}

// IsTerminal reports whether no transition may leave s.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCompleted || s == EventStatusFailed
}

// AllowedPriorStates returns the states from which to may be entered. It is empty for
// pending, which is only ever written on insert.
func AllowedPriorStates(to EventStatus) []EventStatus {
	return slices.Clone(allowedPriorStates[to])
}

// CanTransition reports whether from → to is an edge of the event state machine.
func CanTransition(from, to EventStatus) bool {
	return slices.Contains(allowedPriorStates[to], from)
}

// Event is a durable record of a fact to be propagated to subscribers.
type Event struct {
	ID           uuid.UUID
	EventType    string
	SourceAppID  *uuid.UUID
	Payload      map[string]any
	Status       EventStatus
	ScheduledFor *time.Time
	RetryCount   int
	MaxRetries   int
	ErrorMessage *string
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsDue reports whether the event may be picked up at now.
func (e *Event) IsDue(now time.Time) bool {
	if e.Status != EventStatusPending && e.Status != EventStatusRetrying {
		return false
	}
	return e.ScheduledFor == nil || !e.ScheduledFor.After(now)
}

// CanRetry reports whether another failed attempt may still be retried.
func (e *Event) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// PublishEventInput describes a new event.
type PublishEventInput struct {
	EventType    string
	SourceAppID  *uuid.UUID
	Payload      map[string]any
	ScheduledFor *time.Time
}

// StatusUpdate is a conditional status write. It only applies while the event is in one
// of From and, when IncrementRetry is set, while retry_count stays within max_retries.
type StatusUpdate struct {
	ID   uuid.UUID
	From []EventStatus
	To   EventStatus
	// Claim is stored as the new claim token when To is processing. For any other To a
	// non-nil Claim additionally requires the stored token to equal it. Leaving
	// processing always clears the token.
	Claim          uuid.UUID
	ErrorMessage   *string
	IncrementRetry bool
	// ScheduledFor replaces scheduled_for when set.
	ScheduledFor *time.Time
	// ProcessedAt is written on terminal transitions.
	ProcessedAt *time.Time
	// DueAt, when set, additionally requires scheduled_for to be null or not after DueAt.
	DueAt     *time.Time
	UpdatedAt time.Time
}

// HistoryFilter selects events for the history query. Zero values do not filter.
type HistoryFilter struct {
	AppID     *uuid.UUID
	EventType string
	Status    EventStatus
	StartDate *time.Time
	EndDate   *time.Time
	Offset    int
	Limit     int
}
