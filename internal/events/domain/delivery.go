package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
	// DeliveryStatusRetrying is accepted when reading records but never written: a failed
	// attempt is recorded as failed and the retry decision lives on the event.
	DeliveryStatusRetrying DeliveryStatus = "retrying"
)

// MaxResponseBodyBytes bounds the stored subscriber response body.
const MaxResponseBodyBytes = 4 << 10

// DeliveryRecord is one attempt to deliver one event to one subscription. Records are
// never updated after insertion.
type DeliveryRecord struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	SubscriptionID uuid.UUID
	AttemptNumber  int
	Status         DeliveryStatus
	HTTPStatusCode *int
	ResponseBody   *string
	ErrorMessage   *string
	DurationMs     int64
	DeliveredAt    *time.Time
	CreatedAt      time.Time
}

// Envelope is the document POSTed to subscribers.
type Envelope struct {
	EventID     uuid.UUID      `json:"event_id"`
	EventType   string         `json:"event_type"`
	SourceAppID *uuid.UUID     `json:"source_app_id"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewEnvelope builds the webhook body for e.
func NewEnvelope(e *Event) Envelope {
	return Envelope{
		EventID:     e.ID,
		EventType:   e.EventType,
		SourceAppID: e.SourceAppID,
		Payload:     e.Payload,
		CreatedAt:   e.CreatedAt,
	}
}
