package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/allisson/eventhub/internal/database"
	eventsHTTP "github.com/allisson/eventhub/internal/events/http"
	eventsRepository "github.com/allisson/eventhub/internal/events/repository"
	eventsService "github.com/allisson/eventhub/internal/events/service"
	eventsUseCase "github.com/allisson/eventhub/internal/events/usecase"
	"github.com/allisson/eventhub/internal/lease"
)

const (
	sweepLeaseKey = "eventhub:scheduler:sweep"
	// sweepLeaseMinTTL keeps very short intervals from letting a slow sweep overlap the next.
	sweepLeaseMinTTL = 5 * time.Second
	// claimHeartbeatsPerStaleWindow is how many claim refreshes fit in one stale window.
	claimHeartbeatsPerStaleWindow = 3
)

type eventsComponents struct {
	eventRepository        eventsUseCase.EventRepository
	subscriptionRepository eventsUseCase.SubscriptionRepository
	deliveryRepository     eventsUseCase.DeliveryRepository
	sealer                 eventsService.Sealer
	webhookSender          eventsService.WebhookSender
	eventUseCase           eventsUseCase.EventUseCase
	subscriptionUseCase    eventsUseCase.SubscriptionUseCase
	deliveryEngine         eventsUseCase.DeliveryEngine
	redisClient            *redis.Client
	sweepLock              eventsUseCase.SweepLock
	eventHandler           *eventsHTTP.EventHandler
	subscriptionHandler    *eventsHTTP.SubscriptionHandler

	// scheduler is read by the publish dispatcher before it may exist.
	scheduler atomic.Pointer[eventsUseCase.Scheduler]

	eventRepositoryInit        sync.Once
	subscriptionRepositoryInit sync.Once
	deliveryRepositoryInit     sync.Once
	sealerInit                 sync.Once
	webhookSenderInit          sync.Once
	eventUseCaseInit           sync.Once
	subscriptionUseCaseInit    sync.Once
	deliveryEngineInit         sync.Once
	sweepLockInit              sync.Once
	schedulerInit              sync.Once
	eventHandlerInit           sync.Once
	subscriptionHandlerInit    sync.Once
}

// EventRepository returns the event repository based on database driver.
func (c *Container) EventRepository() (eventsUseCase.EventRepository, error) {
	var err error
	c.eventRepositoryInit.Do(func() {
		c.eventRepository, err = c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepository"] = err
		}
	})
	if storedErr, exists := c.initErrors["eventRepository"]; exists {
		return nil, storedErr
	}
	return c.eventRepository, nil
}

// SubscriptionRepository returns the subscription repository based on database driver.
func (c *Container) SubscriptionRepository() (eventsUseCase.SubscriptionRepository, error) {
	var err error
	c.subscriptionRepositoryInit.Do(func() {
		c.subscriptionRepository, err = c.initSubscriptionRepository()
		if err != nil {
			c.initErrors["subscriptionRepository"] = err
		}
	})
	if storedErr, exists := c.initErrors["subscriptionRepository"]; exists {
		return nil, storedErr
	}
	return c.subscriptionRepository, nil
}

// DeliveryRepository returns the delivery log repository based on database driver.
func (c *Container) DeliveryRepository() (eventsUseCase.DeliveryRepository, error) {
	var err error
	c.deliveryRepositoryInit.Do(func() {
		c.deliveryRepository, err = c.initDeliveryRepository()
		if err != nil {
			c.initErrors["deliveryRepository"] = err
		}
	})
	if storedErr, exists := c.initErrors["deliveryRepository"]; exists {
		return nil, storedErr
	}
	return c.deliveryRepository, nil
}

// Sealer returns the signing secret sealer. It is disabled when no keeper URL is set.
func (c *Container) Sealer() (eventsService.Sealer, error) {
	var err error
	c.sealerInit.Do(func() {
		c.sealer, err = eventsService.NewSealer(context.Background(), c.config.WebhookSecretsKeeperURL)
		if err != nil {
			c.initErrors["sealer"] = fmt.Errorf("failed to create sealer: %w", err)
		}
	})
	if storedErr, exists := c.initErrors["sealer"]; exists {
		return nil, storedErr
	}
	return c.sealer, nil
}

// WebhookSender returns the outbound webhook client.
func (c *Container) WebhookSender() eventsService.WebhookSender {
	c.webhookSenderInit.Do(func() {
		c.webhookSender = eventsService.NewWebhookSender(c.config.WebhookTimeout)
	})
	return c.webhookSender
}

// EventUseCase returns the event store, decorated with metrics. Published events are
// handed to the scheduler when one runs in this process.
func (c *Container) EventUseCase() (eventsUseCase.EventUseCase, error) {
	var err error
	c.eventUseCaseInit.Do(func() {
		c.eventUseCase, err = c.initEventUseCase()
		if err != nil {
			c.initErrors["eventUseCase"] = err
		}
	})
	if storedErr, exists := c.initErrors["eventUseCase"]; exists {
		return nil, storedErr
	}
	return c.eventUseCase, nil
}

// SubscriptionUseCase returns the subscription registry, decorated with metrics.
func (c *Container) SubscriptionUseCase() (eventsUseCase.SubscriptionUseCase, error) {
	var err error
	c.subscriptionUseCaseInit.Do(func() {
		c.subscriptionUseCase, err = c.initSubscriptionUseCase()
		if err != nil {
			c.initErrors["subscriptionUseCase"] = err
		}
	})
	if storedErr, exists := c.initErrors["subscriptionUseCase"]; exists {
		return nil, storedErr
	}
	return c.subscriptionUseCase, nil
}

// DeliveryEngine returns the webhook delivery engine.
func (c *Container) DeliveryEngine() (eventsUseCase.DeliveryEngine, error) {
	var err error
	c.deliveryEngineInit.Do(func() {
		c.deliveryEngine, err = c.initDeliveryEngine()
		if err != nil {
			c.initErrors["deliveryEngine"] = err
		}
	})
	if storedErr, exists := c.initErrors["deliveryEngine"]; exists {
		return nil, storedErr
	}
	return c.deliveryEngine, nil
}

// SweepLock returns the cross-instance sweep lease, or nil when no Redis URL is set.
func (c *Container) SweepLock() (eventsUseCase.SweepLock, error) {
	var err error
	c.sweepLockInit.Do(func() {
		c.sweepLock, err = c.initSweepLock()
		if err != nil {
			c.initErrors["sweepLock"] = err
		}
	})
	if storedErr, exists := c.initErrors["sweepLock"]; exists {
		return nil, storedErr
	}
	return c.sweepLock, nil
}

// Scheduler returns the due-event scheduler.
func (c *Container) Scheduler() (*eventsUseCase.Scheduler, error) {
	var err error
	c.schedulerInit.Do(func() {
		var scheduler *eventsUseCase.Scheduler
		scheduler, err = c.initScheduler()
		if err != nil {
			c.initErrors["scheduler"] = err
			return
		}
		c.scheduler.Store(scheduler)
	})
	if storedErr, exists := c.initErrors["scheduler"]; exists {
		return nil, storedErr
	}
	return c.scheduler.Load(), nil
}

// EventHandler returns the HTTP handler for events.
func (c *Container) EventHandler() (*eventsHTTP.EventHandler, error) {
	var err error
	c.eventHandlerInit.Do(func() {
		var useCase eventsUseCase.EventUseCase
		useCase, err = c.EventUseCase()
		if err != nil {
			c.initErrors["eventHandler"] = fmt.Errorf("failed to get event use case for event handler: %w", err)
			return
		}
		c.eventHandler = eventsHTTP.NewEventHandler(useCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["eventHandler"]; exists {
		return nil, storedErr
	}
	return c.eventHandler, nil
}

// SubscriptionHandler returns the HTTP handler for subscriptions.
func (c *Container) SubscriptionHandler() (*eventsHTTP.SubscriptionHandler, error) {
	var err error
	c.subscriptionHandlerInit.Do(func() {
		var useCase eventsUseCase.SubscriptionUseCase
		useCase, err = c.SubscriptionUseCase()
		if err != nil {
			c.initErrors["subscriptionHandler"] = fmt.Errorf(
				"failed to get subscription use case for subscription handler: %w",
				err,
			)
			return
		}
		c.subscriptionHandler = eventsHTTP.NewSubscriptionHandler(useCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["subscriptionHandler"]; exists {
		return nil, storedErr
	}
	return c.subscriptionHandler, nil
}

// dispatch submits a published event to the in-process scheduler. Without one the event
// waits for a sweep, possibly on another instance.
func (c *Container) dispatch(ctx context.Context, eventID uuid.UUID) bool {
	scheduler := c.scheduler.Load()
	if scheduler == nil {
		return false
	}
	return scheduler.Submit(ctx, eventID)
}

// shutdownEvents drains the scheduler before closing what deliveries depend on.
func (c *Container) shutdownEvents(ctx context.Context) []error {
	var errs []error

	if scheduler := c.scheduler.Load(); scheduler != nil {
		if err := scheduler.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
		}
	}
	if c.sealer != nil {
		if err := c.sealer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sealer close: %w", err))
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	return errs
}

func (c *Container) initEventRepository() (eventsUseCase.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return eventsRepository.NewMySQLEventRepository(db), nil
	case database.DriverPostgres:
		return eventsRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initSubscriptionRepository() (eventsUseCase.SubscriptionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for subscription repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return eventsRepository.NewMySQLSubscriptionRepository(db), nil
	case database.DriverPostgres:
		return eventsRepository.NewPostgreSQLSubscriptionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initDeliveryRepository() (eventsUseCase.DeliveryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for delivery repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return eventsRepository.NewMySQLDeliveryRepository(db), nil
	case database.DriverPostgres:
		return eventsRepository.NewPostgreSQLDeliveryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initEventUseCase() (eventsUseCase.EventUseCase, error) {
	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for event use case: %w", err)
	}
	deliveryRepo, err := c.DeliveryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery repository for event use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := eventsUseCase.NewEventUseCase(
		eventRepo,
		deliveryRepo,
		eventsUseCase.DispatcherFunc(c.dispatch),
		eventsUseCase.EventConfig{
			MaxRetries:    c.config.EventMaxRetries,
			RetryInterval: c.config.EventRetryInterval,
		},
	)
	return eventsUseCase.NewEventUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initSubscriptionUseCase() (eventsUseCase.SubscriptionUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for subscription use case: %w", err)
	}
	subRepo, err := c.SubscriptionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription repository for subscription use case: %w", err)
	}
	sealer, err := c.Sealer()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := eventsUseCase.NewSubscriptionUseCase(txManager, subRepo, sealer)
	return eventsUseCase.NewSubscriptionUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initDeliveryEngine() (eventsUseCase.DeliveryEngine, error) {
	eventUseCase, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for delivery engine: %w", err)
	}
	subscriptionUseCase, err := c.SubscriptionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription use case for delivery engine: %w", err)
	}
	deliveryRepo, err := c.DeliveryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery repository for delivery engine: %w", err)
	}
	sealer, err := c.Sealer()
	if err != nil {
		return nil, err
	}
	deliveryMetrics, err := c.DeliveryMetrics()
	if err != nil {
		return nil, err
	}

	return eventsUseCase.NewDeliveryEngine(
		eventUseCase,
		subscriptionUseCase,
		deliveryRepo,
		c.WebhookSender(),
		sealer,
		deliveryMetrics,
		c.Logger(),
		c.config.WebhookMaxConcurrency,
		c.config.SchedulerStaleAfter/claimHeartbeatsPerStaleWindow,
	), nil
}

func (c *Container) initSweepLock() (eventsUseCase.SweepLock, error) {
	if c.config.SchedulerLockRedisURL == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := lease.NewClient(ctx, c.config.SchedulerLockRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to scheduler lock redis: %w", err)
	}
	c.redisClient = client

	return lease.NewRedisLease(client, sweepLeaseKey, max(2*c.config.SchedulerInterval, sweepLeaseMinTTL)), nil
}

func (c *Container) initScheduler() (*eventsUseCase.Scheduler, error) {
	if err := c.config.ValidateScheduler(); err != nil {
		return nil, err
	}
	eventUseCase, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for scheduler: %w", err)
	}
	engine, err := c.DeliveryEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery engine for scheduler: %w", err)
	}
	lock, err := c.SweepLock()
	if err != nil {
		return nil, err
	}
	deliveryMetrics, err := c.DeliveryMetrics()
	if err != nil {
		return nil, err
	}

	return eventsUseCase.NewScheduler(
		eventsUseCase.SchedulerConfig{
			Interval:    c.config.SchedulerInterval,
			BatchSize:   c.config.SchedulerBatchSize,
			MaxInFlight: int64(c.config.SchedulerMaxInFlight),
			StaleAfter:  c.config.SchedulerStaleAfter,
		},
		eventUseCase,
		engine,
		lock,
		deliveryMetrics,
		c.Logger(),
	), nil
}
