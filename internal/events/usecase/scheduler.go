package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/allisson/eventhub/internal/lease"
	"github.com/allisson/eventhub/internal/metrics"
)

// DefaultSchedulerInterval is used when SchedulerConfig.Interval is not positive.
const DefaultSchedulerInterval = 5 * time.Second

// SchedulerConfig holds the sweep configuration.
type SchedulerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxInFlight int64
	// StaleAfter is how long a processing event may go without a claim heartbeat before
	// it is recovered. Zero disables recovery.
	StaleAfter time.Duration
}

// SweepLock elects the instance allowed to sweep. lease.RedisLease implements it.
type SweepLock interface {
	TryAcquire(ctx context.Context) (lease.Release, bool, error)
}

// Scheduler drives due events into the delivery engine.
type Scheduler struct {
	config  SchedulerConfig
	events  EventUseCase
	engine  DeliveryEngine
	lock    SweepLock
	metrics metrics.DeliveryMetrics
	logger  *slog.Logger

	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight sync.Map

	mu     sync.Mutex
	closed bool
}

// NewScheduler creates a Scheduler. lock may be nil for single-instance deployments.
func NewScheduler(
	config SchedulerConfig,
	events EventUseCase,
	engine DeliveryEngine,
	lock SweepLock,
	deliveryMetrics metrics.DeliveryMetrics,
	logger *slog.Logger,
) *Scheduler {
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = 1
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerInterval
	}
	return &Scheduler{
		config:  config,
		events:  events,
		engine:  engine,
		lock:    lock,
		metrics: deliveryMetrics,
		logger:  logger,
		sem:     semaphore.NewWeighted(config.MaxInFlight),
	}
}

// Start runs sweeps every Interval until ctx is cancelled, then waits for in-flight
// deliveries and returns ctx.Err(). Sweep errors are logged and do not stop the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting event scheduler",
		slog.Duration("interval", s.config.Interval),
		slog.Int("batch_size", s.config.BatchSize),
		slog.Int64("max_in_flight", s.config.MaxInFlight),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping event scheduler")
			s.close()
			s.Wait()
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("failed to sweep due events", slog.Any("error", err))
			}
		}
	}
}

// Tick runs one sweep: recover stale events, then submit up to BatchSize due events. It
// does not wait for the deliveries it starts.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.lock != nil {
		release, ok, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Debug("sweep lease held by another instance")
			return nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release sweep lease", slog.Any("error", err))
			}
		}()
	}

	var recoverErr error
	if s.config.StaleAfter > 0 {
		recovered, err := s.events.RecoverStale(ctx, s.config.StaleAfter)
		if err != nil {
			recoverErr = err
		} else if recovered > 0 {
			s.logger.Warn("recovered stale events", slog.Int64("count", recovered))
		}
	}

	events, err := s.events.DueEvents(ctx, s.config.BatchSize)
	if err != nil {
		return errors.Join(recoverErr, err)
	}

	submitted := 0
	for _, event := range events {
		if s.Submit(ctx, event.ID) {
			submitted++
		}
	}
	if len(events) > 0 {
		s.logger.Debug("submitted due events",
			slog.Int("due", len(events)),
			slog.Int("submitted", submitted),
		)
	}

	return recoverErr
}

// Submit starts processing eventID in the background. It returns false when the
// scheduler is saturated, shutting down or already processing the event; the event is
// then left for a later sweep.
func (s *Scheduler) Submit(ctx context.Context, eventID uuid.UUID) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if !s.sem.TryAcquire(1) {
		s.mu.Unlock()
		return false
	}
	if _, loaded := s.inFlight.LoadOrStore(eventID, struct{}{}); loaded {
		s.sem.Release(1)
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	// Deliveries outlive the request or sweep that started them.
	ctx = context.WithoutCancel(ctx)
	s.metrics.AddInFlight(ctx, 1)

	go func() {
		defer func() {
			s.metrics.AddInFlight(ctx, -1)
			s.inFlight.Delete(eventID)
			s.sem.Release(1)
			s.wg.Done()
		}()

		if err := s.engine.Process(ctx, eventID); err != nil {
			s.logger.Error("failed to process event",
				slog.String("event_id", eventID.String()),
				slog.Any("error", err),
			)
		}
	}()
	return true
}

// Wait blocks until every submitted event has been processed.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Shutdown stops accepting submissions and waits for in-flight deliveries or ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
