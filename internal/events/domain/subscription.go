package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryMode declares how a subscriber wants to receive events. Only async delivery is
// performed; sync and batch subscriptions are delivered as async.
type DeliveryMode string

const (
	DeliveryModeSync  DeliveryMode = "sync"
	DeliveryModeAsync DeliveryMode = "async"
	DeliveryModeBatch DeliveryMode = "batch"
)

// ParseDeliveryMode validates s, defaulting to async when empty.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch m := DeliveryMode(s); m {
	case "":
		return DeliveryModeAsync, nil
	case DeliveryModeSync, DeliveryModeAsync, DeliveryModeBatch:
		return m, nil
	}
	return "", ErrInvalidDeliveryMode
}

// Subscription is a standing interest of an application in an event type.
type Subscription struct {
	ID             uuid.UUID
	AppID          uuid.UUID
	EventType      string
	WebhookURL     string
	FilterCriteria map[string]any
	DeliveryMode   DeliveryMode
	IsActive       bool
	// SigningSecret is the sealed HMAC key; nil when deliveries are unsigned.
	SigningSecret []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SubscribeInput describes a subscription to create or reactivate.
type SubscribeInput struct {
	AppID          uuid.UUID
	EventType      string
	WebhookURL     string
	FilterCriteria map[string]any
	DeliveryMode   DeliveryMode
}

// SubscribeOutput carries the subscription and, for newly created signed subscriptions,
// the plain signing secret. The secret is not retrievable later.
type SubscribeOutput struct {
	Subscription  *Subscription
	SigningSecret string //nolint:gosec // returned once to the subscriber
	Reactivated   bool
}
