// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
	customValidation "github.com/allisson/eventhub/internal/validation"
)

// MaxWebhookURLLength matches the width of the webhook_url columns.
const MaxWebhookURLLength = 2048

// PublishEventRequest contains the parameters for publishing an event.
type PublishEventRequest struct {
	EventType string `json:"event_type"`
	// SourceAppID defaults to the caller and must match it when set.
	SourceAppID  *string        `json:"source_app_id"`
	Payload      map[string]any `json:"payload"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
}

// Validate checks if the publish request is valid.
func (r *PublishEventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EventType,
			validation.Required,
			customValidation.NoWhitespace,
			customValidation.EventType,
		),
		validation.Field(&r.Payload, validation.NotNil),
	)
}

// SubscribeRequest contains the parameters for creating or reactivating a subscription.
type SubscribeRequest struct {
	// AppID defaults to the caller and must match it when set.
	AppID          *string        `json:"app_id"`
	EventType      string         `json:"event_type"`
	WebhookURL     string         `json:"webhook_url"`
	FilterCriteria map[string]any `json:"filter_criteria"`
	DeliveryMode   string         `json:"delivery_mode"`
}

// Validate checks if the subscribe request is valid.
func (r *SubscribeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EventType,
			validation.Required,
			customValidation.NoWhitespace,
			customValidation.EventType,
		),
		validation.Field(&r.WebhookURL,
			validation.Required,
			validation.Length(1, MaxWebhookURLLength),
			customValidation.WebhookURL,
		),
		validation.Field(&r.FilterCriteria, customValidation.FlatFilter),
		validation.Field(&r.DeliveryMode,
			validation.In(
				string(eventsDomain.DeliveryModeSync),
				string(eventsDomain.DeliveryModeAsync),
				string(eventsDomain.DeliveryModeBatch),
			),
		),
	)
}
