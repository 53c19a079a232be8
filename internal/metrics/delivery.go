package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DeliveryMetrics records webhook attempts, event outcomes and scheduler load.
type DeliveryMetrics interface {
	// RecordAttempt counts one webhook attempt. statusCode is 0 when no response was received.
	RecordAttempt(ctx context.Context, eventType, outcome string, statusCode int, duration time.Duration)
	// RecordEventOutcome counts an event leaving processing with the given status.
	RecordEventOutcome(ctx context.Context, eventType, status string)
	// AddInFlight adjusts the number of events currently being processed.
	AddInFlight(ctx context.Context, delta int64)
}

type deliveryMetrics struct {
	attemptCounter metric.Int64Counter
	attemptHisto   metric.Float64Histogram
	outcomeCounter metric.Int64Counter
	inFlight       metric.Int64UpDownCounter
}

// NewDeliveryMetrics creates DeliveryMetrics on the given meter provider.
func NewDeliveryMetrics(meterProvider metric.MeterProvider, namespace string) (DeliveryMetrics, error) {
	meter := meterProvider.Meter(namespace)

	attemptCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_webhook_attempts_total", namespace),
		metric.WithDescription("Total number of webhook delivery attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt counter: %w", err)
	}

	attemptHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_webhook_attempt_duration_seconds", namespace),
		metric.WithDescription("Duration of webhook delivery attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt histogram: %w", err)
	}

	outcomeCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_event_outcomes_total", namespace),
		metric.WithDescription("Total number of processed events by resulting status"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outcome counter: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_events_in_flight", namespace),
		metric.WithDescription("Number of events currently being processed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-flight gauge: %w", err)
	}

	return &deliveryMetrics{
		attemptCounter: attemptCounter,
		attemptHisto:   attemptHisto,
		outcomeCounter: outcomeCounter,
		inFlight:       inFlight,
	}, nil
}

func (d *deliveryMetrics) RecordAttempt(
	ctx context.Context,
	eventType, outcome string,
	statusCode int,
	duration time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
		attribute.String("status_code", strconv.Itoa(statusCode)),
	)
	d.attemptCounter.Add(ctx, 1, attrs)
	d.attemptHisto.Record(ctx, duration.Seconds(), attrs)
}

func (d *deliveryMetrics) RecordEventOutcome(ctx context.Context, eventType, status string) {
	d.outcomeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("status", status),
	))
}

func (d *deliveryMetrics) AddInFlight(ctx context.Context, delta int64) {
	d.inFlight.Add(ctx, delta)
}

// NoOpDeliveryMetrics is used when metrics are disabled.
type NoOpDeliveryMetrics struct{}

// NewNoOpDeliveryMetrics creates a no-op DeliveryMetrics implementation.
func NewNoOpDeliveryMetrics() DeliveryMetrics {
	return &NoOpDeliveryMetrics{}
}

func (n *NoOpDeliveryMetrics) RecordAttempt(context.Context, string, string, int, time.Duration) {}

func (n *NoOpDeliveryMetrics) RecordEventOutcome(context.Context, string, string) {}

func (n *NoOpDeliveryMetrics) AddInFlight(context.Context, int64) {}
