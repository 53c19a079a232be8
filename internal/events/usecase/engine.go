package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
	eventsService "github.com/allisson/eventhub/internal/events/service"
	"github.com/allisson/eventhub/internal/metrics"
	"github.com/allisson/eventhub/internal/tracing"
)

// DefaultMaxConcurrency caps concurrent webhook attempts for one event.
const DefaultMaxConcurrency = 16

// Delivery attempt outcomes reported to metrics.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type attemptResult struct {
	failed bool
	errMsg string
}

type deliveryEngine struct {
	events         EventUseCase
	subscriptions  SubscriptionUseCase
	deliveryRepo   DeliveryRepository
	sender         eventsService.WebhookSender
	sealer         eventsService.Sealer
	metrics        metrics.DeliveryMetrics
	logger         *slog.Logger
	maxConcurrency int
	heartbeat      time.Duration
}

// NewDeliveryEngine creates a DeliveryEngine fanning out to at most maxConcurrency
// subscribers at a time. While an event is being processed its claim is refreshed every
// heartbeat; zero disables the refresh.
func NewDeliveryEngine(
	events EventUseCase,
	subscriptions SubscriptionUseCase,
	deliveryRepo DeliveryRepository,
	sender eventsService.WebhookSender,
	sealer eventsService.Sealer,
	deliveryMetrics metrics.DeliveryMetrics,
	logger *slog.Logger,
	maxConcurrency int,
	heartbeat time.Duration,
) DeliveryEngine {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &deliveryEngine{
		events:         events,
		subscriptions:  subscriptions,
		deliveryRepo:   deliveryRepo,
		sender:         sender,
		sealer:         sealer,
		metrics:        deliveryMetrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		heartbeat:      max(heartbeat, 0),
	}
}

func (d *deliveryEngine) Process(ctx context.Context, eventID uuid.UUID) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "events.process",
		trace.WithAttributes(attribute.String("event.id", eventID.String())))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	claim, err := d.events.Claim(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventsDomain.ErrInvalidTransition) || errors.Is(err, eventsDomain.ErrEventNotFound) {
			d.logger.DebugContext(ctx, "event not claimable", slog.String("event_id", eventID.String()))
			return nil
		}
		return err
	}

	// From here on a fault leaves the event in processing; once the heartbeat stops,
	// stale recovery picks it up.
	ctx, abandon := context.WithCancelCause(ctx)
	stopHeartbeat := d.keepClaim(ctx, eventID, claim, abandon)
	defer func() {
		stopHeartbeat()
		abandon(nil)
	}()

	event, err := d.events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("event.type", event.EventType))

	subs, err := d.subscriptions.ActiveSubscriptions(ctx, event.EventType)
	if err != nil {
		return err
	}
	matched := make([]*eventsDomain.Subscription, 0, len(subs))
	for _, sub := range subs {
		if eventsDomain.Matches(event.Payload, sub.FilterCriteria) {
			matched = append(matched, sub)
		}
	}

	results, faults := d.deliverAll(ctx, event, matched)
	stopHeartbeat()
	if lost := context.Cause(ctx); errors.Is(lost, eventsDomain.ErrClaimLost) {
		d.logClaimLost(ctx, event)
		return nil
	}

	var lastErr string
	failures := 0
	for _, r := range results {
		if r.failed {
			failures++
			lastErr = r.errMsg
		}
	}

	status := eventsDomain.EventStatusCompleted
	var errMsg *string
	if failures > 0 {
		errMsg = &lastErr
		status = eventsDomain.EventStatusFailed
		if event.CanRetry() {
			status = eventsDomain.EventStatusRetrying
		}
	}

	err = d.events.Settle(ctx, eventID, claim, status, errMsg)
	if errors.Is(err, eventsDomain.ErrRetryBudgetExhausted) {
		status = eventsDomain.EventStatusFailed
		err = d.events.Settle(ctx, eventID, claim, status, errMsg)
	}
	if errors.Is(err, eventsDomain.ErrClaimLost) {
		d.logClaimLost(ctx, event)
		return faults
	}
	if err != nil {
		return errors.Join(faults, err)
	}

	d.metrics.RecordEventOutcome(ctx, event.EventType, string(status))
	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.Int("subscribers", len(matched)),
		slog.Int("failures", failures),
		slog.String("status", string(status)),
	}
	switch status {
	case eventsDomain.EventStatusFailed:
		attrs = append(attrs, slog.String("error", lastErr))
		d.logger.WarnContext(ctx, "event delivery failed permanently", attrs...)
	case eventsDomain.EventStatusRetrying:
		attrs = append(attrs, slog.Int("retry_count", event.RetryCount+1))
		d.logger.InfoContext(ctx, "event scheduled for retry", attrs...)
	default:
		d.logger.DebugContext(ctx, "event delivered", attrs...)
	}

	return faults
}

// keepClaim refreshes the claim on eventID every heartbeat until the returned stop
// function is called. A lost claim cancels ctx with ErrClaimLost so the remaining
// attempts are abandoned to the worker that now owns the event.
func (d *deliveryEngine) keepClaim(
	ctx context.Context,
	eventID, claim uuid.UUID,
	abandon context.CancelCauseFunc,
) (stop func()) {
	if d.heartbeat <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Go(func() {
		ticker := time.NewTicker(d.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			err := d.events.Heartbeat(ctx, eventID, claim)
			switch {
			case err == nil:
			case errors.Is(err, eventsDomain.ErrClaimLost):
				abandon(eventsDomain.ErrClaimLost)
				return
			case ctx.Err() != nil:
				return
			default:
				d.logger.WarnContext(ctx, "failed to refresh event claim",
					slog.String("event_id", eventID.String()),
					slog.Any("error", err),
				)
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func (d *deliveryEngine) logClaimLost(ctx context.Context, event *eventsDomain.Event) {
	d.logger.WarnContext(ctx, "event claim lost, leaving the event to its new worker",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
	)
}

// deliverAll attempts every subscription once. Results are indexed like subs.
func (d *deliveryEngine) deliverAll(
	ctx context.Context,
	event *eventsDomain.Event,
	subs []*eventsDomain.Subscription,
) ([]attemptResult, error) {
	results := make([]attemptResult, len(subs))
	faults := make([]error, len(subs))
	envelope := eventsDomain.NewEnvelope(event)
	attempt := event.RetryCount + 1

	var g errgroup.Group
	g.SetLimit(d.maxConcurrency)
	for i, sub := range subs {
		g.Go(func() error {
			results[i], faults[i] = d.deliverOne(ctx, event, envelope, sub, attempt)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(faults...)
}

func (d *deliveryEngine) deliverOne(
	ctx context.Context,
	event *eventsDomain.Event,
	envelope eventsDomain.Envelope,
	sub *eventsDomain.Subscription,
	attempt int,
) (attemptResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "events.deliver", trace.WithAttributes(
		attribute.String("event.id", event.ID.String()),
		attribute.String("subscription.id", sub.ID.String()),
		attribute.Int("delivery.attempt", attempt),
	))
	defer span.End()

	var (
		result  *eventsService.DeliveryResult
		secret  []byte
		sendErr error
	)
	if len(sub.SigningSecret) > 0 {
		secret, sendErr = d.sealer.Open(ctx, sub.SigningSecret)
	}
	if sendErr == nil {
		result, sendErr = d.sender.Send(ctx, eventsService.DeliveryRequest{
			URL:      sub.WebhookURL,
			Envelope: envelope,
			Attempt:  attempt,
			Secret:   secret,
		})
	}
	if result == nil {
		result = &eventsService.DeliveryResult{}
	}
	span.SetAttributes(attribute.Int("http.response.status_code", result.StatusCode))

	now := time.Now().UTC()
	record := &eventsDomain.DeliveryRecord{
		ID:             uuid.Must(uuid.NewV7()),
		EventID:        event.ID,
		SubscriptionID: sub.ID,
		AttemptNumber:  attempt,
		Status:         eventsDomain.DeliveryStatusSuccess,
		DurationMs:     result.Duration.Milliseconds(),
		CreatedAt:      now,
	}
	if result.StatusCode > 0 {
		code := result.StatusCode
		record.HTTPStatusCode = &code
	}
	if result.Body != "" {
		body := truncate(result.Body, eventsDomain.MaxResponseBodyBytes)
		record.ResponseBody = &body
	}

	outcome := outcomeSuccess
	var res attemptResult
	if sendErr != nil {
		tracing.RecordError(span, sendErr)
		outcome = outcomeFailure
		msg := sendErr.Error()
		record.Status = eventsDomain.DeliveryStatusFailed
		record.ErrorMessage = &msg
		res = attemptResult{failed: true, errMsg: msg}
		d.logger.InfoContext(ctx, "webhook delivery attempt failed",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
			slog.String("subscription_id", sub.ID.String()),
			slog.Int("attempt", attempt),
			slog.String("error", msg),
		)
	} else {
		record.DeliveredAt = &now
	}
	d.metrics.RecordAttempt(ctx, event.EventType, outcome, result.StatusCode, result.Duration)

	if err := d.deliveryRepo.Create(ctx, record); err != nil {
		d.logger.ErrorContext(ctx, "failed to record delivery attempt",
			slog.String("event_id", event.ID.String()),
			slog.String("subscription_id", sub.ID.String()),
			slog.Any("error", err),
		)
		return res, err
	}
	return res, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
