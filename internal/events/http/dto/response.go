package dto

import (
	"time"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// EventResponse represents an event in API responses.
type EventResponse struct {
	EventID      string         `json:"event_id"`
	EventType    string         `json:"event_type"`
	SourceAppID  *string        `json:"source_app_id"`
	Payload      map[string]any `json:"payload"`
	Status       string         `json:"status"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ErrorMessage *string        `json:"error_message"`
	ProcessedAt  *time.Time     `json:"processed_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// MapEventToResponse converts a domain event to an API response.
func MapEventToResponse(event *eventsDomain.Event) EventResponse {
	resp := EventResponse{
		EventID:      event.ID.String(),
		EventType:    event.EventType,
		Payload:      event.Payload,
		Status:       string(event.Status),
		ScheduledFor: event.ScheduledFor,
		RetryCount:   event.RetryCount,
		MaxRetries:   event.MaxRetries,
		ErrorMessage: event.ErrorMessage,
		ProcessedAt:  event.ProcessedAt,
		CreatedAt:    event.CreatedAt,
		UpdatedAt:    event.UpdatedAt,
	}
	if event.SourceAppID != nil {
		id := event.SourceAppID.String()
		resp.SourceAppID = &id
	}
	return resp
}

// MapEventsToResponse converts domain events to API responses.
func MapEventsToResponse(events []*eventsDomain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, MapEventToResponse(event))
	}
	return out
}

// SubscriptionResponse represents a subscription in API responses.
type SubscriptionResponse struct {
	SubscriptionID string         `json:"subscription_id"`
	AppID          string         `json:"app_id"`
	EventType      string         `json:"event_type"`
	WebhookURL     string         `json:"webhook_url"`
	FilterCriteria map[string]any `json:"filter_criteria"`
	DeliveryMode   string         `json:"delivery_mode"`
	IsActive       bool           `json:"is_active"`
	Signed         bool           `json:"signed"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SubscribeResponse is returned by the subscribe endpoint. SigningSecret is only present
// when this call generated one, on creation or on the first reactivation after signing
// was enabled; it is never returned again.
type SubscribeResponse struct {
	SubscriptionResponse
	Reactivated   bool   `json:"reactivated"`
	SigningSecret string `json:"signing_secret,omitempty"` //nolint:gosec // returned once
}

// MapSubscriptionToResponse converts a domain subscription to an API response.
func MapSubscriptionToResponse(sub *eventsDomain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		SubscriptionID: sub.ID.String(),
		AppID:          sub.AppID.String(),
		EventType:      sub.EventType,
		WebhookURL:     sub.WebhookURL,
		FilterCriteria: sub.FilterCriteria,
		DeliveryMode:   string(sub.DeliveryMode),
		IsActive:       sub.IsActive,
		Signed:         len(sub.SigningSecret) > 0,
		CreatedAt:      sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
	}
}

// MapSubscribeOutputToResponse converts a subscribe result to an API response.
func MapSubscribeOutputToResponse(output *eventsDomain.SubscribeOutput) SubscribeResponse {
	return SubscribeResponse{
		SubscriptionResponse: MapSubscriptionToResponse(output.Subscription),
		Reactivated:          output.Reactivated,
		SigningSecret:        output.SigningSecret,
	}
}

// MapSubscriptionsToResponse converts domain subscriptions to API responses.
func MapSubscriptionsToResponse(subs []*eventsDomain.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, MapSubscriptionToResponse(sub))
	}
	return out
}

// DeliveryRecordResponse represents one delivery attempt in API responses.
type DeliveryRecordResponse struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	SubscriptionID string     `json:"subscription_id"`
	AttemptNumber  int        `json:"attempt_number"`
	Status         string     `json:"status"`
	HTTPStatusCode *int       `json:"http_status_code"`
	ResponseBody   *string    `json:"response_body"`
	ErrorMessage   *string    `json:"error_message"`
	DurationMs     int64      `json:"duration_ms"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MapDeliveryRecordsToResponse converts delivery records to API responses.
func MapDeliveryRecordsToResponse(records []*eventsDomain.DeliveryRecord) []DeliveryRecordResponse {
	out := make([]DeliveryRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, DeliveryRecordResponse{
			ID:             r.ID.String(),
			EventID:        r.EventID.String(),
			SubscriptionID: r.SubscriptionID.String(),
			AttemptNumber:  r.AttemptNumber,
			Status:         string(r.Status),
			HTTPStatusCode: r.HTTPStatusCode,
			ResponseBody:   r.ResponseBody,
			ErrorMessage:   r.ErrorMessage,
			DurationMs:     r.DurationMs,
			DeliveredAt:    r.DeliveredAt,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out
}

// UnsubscribeResponse reports whether the subscription existed.
type UnsubscribeResponse struct {
	Success bool `json:"success"`
}
