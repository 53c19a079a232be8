package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/eventhub/internal/errors"
)

var allStatuses = []EventStatus{
	EventStatusPending,
	EventStatusProcessing,
	EventStatusCompleted,
	EventStatusFailed,
	EventStatusRetrying,
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]EventStatus]bool{
		{EventStatusPending, EventStatusProcessing}:   true,
		{EventStatusRetrying, EventStatusProcessing}:  true,
		{EventStatusProcessing, EventStatusCompleted}: true,
		{EventStatusProcessing, EventStatusFailed}:    true,
		{EventStatusProcessing, EventStatusRetrying}:  true,
		{EventStatusRetrying, EventStatusFailed}:      true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]EventStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []EventStatus{EventStatusCompleted, EventStatusFailed} {
		assert.True(t, from.IsTerminal())
		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestAllowedPriorStates(t *testing.T) {
	assert.Empty(t, AllowedPriorStates(EventStatusPending))
	assert.ElementsMatch(t,
		[]EventStatus{EventStatusPending, EventStatusRetrying},
		AllowedPriorStates(EventStatusProcessing))

	// returned slices are copies
	got := AllowedPriorStates(EventStatusCompleted)
	got[0] = EventStatusFailed
	assert.Equal(t, []EventStatus{EventStatusProcessing}, AllowedPriorStates(EventStatusCompleted))
}

func TestParseEventStatus(t *testing.T) {
	for _, s := range allStatuses {
		got, err := ParseEventStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseEventStatus("done")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEvent_IsDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Event{Status: EventStatusPending}).IsDue(now))
	assert.True(t, (&Event{Status: EventStatusRetrying, ScheduledFor: &past}).IsDue(now))
	assert.True(t, (&Event{Status: EventStatusPending, ScheduledFor: &now}).IsDue(now))
	assert.False(t, (&Event{Status: EventStatusPending, ScheduledFor: &future}).IsDue(now))
	assert.False(t, (&Event{Status: EventStatusProcessing}).IsDue(now))
	assert.False(t, (&Event{Status: EventStatusCompleted}).IsDue(now))
}

func TestEvent_CanRetry(t *testing.T) {
	assert.True(t, (&Event{RetryCount: 0, MaxRetries: 2}).CanRetry())
	assert.True(t, (&Event{RetryCount: 1, MaxRetries: 2}).CanRetry())
	assert.False(t, (&Event{RetryCount: 2, MaxRetries: 2}).CanRetry())
	assert.False(t, (&Event{RetryCount: 0, MaxRetries: 0}).CanRetry())
}

func TestParseDeliveryMode(t *testing.T) {
	mode, err := ParseDeliveryMode("")
	require.NoError(t, err)
	assert.Equal(t, DeliveryModeAsync, mode)

	mode, err = ParseDeliveryMode("batch")
	require.NoError(t, err)
	assert.Equal(t, DeliveryModeBatch, mode)

	_, err = ParseDeliveryMode("stream")
	assert.ErrorIs(t, err, ErrInvalidDeliveryMode)
}

func TestNewEnvelope(t *testing.T) {
	e := &Event{EventType: "order.created", Payload: map[string]any{"id": 1}, CreatedAt: time.Now()}
	env := NewEnvelope(e)

	assert.Equal(t, e.ID, env.EventID)
	assert.Equal(t, "order.created", env.EventType)
	assert.Nil(t, env.SourceAppID)
	assert.Equal(t, e.Payload, env.Payload)
}
