package usecase

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
	eventsService "github.com/allisson/eventhub/internal/events/service"
)

type mockEventRepository struct {
	mock.Mock
}

func (m *mockEventRepository) Create(ctx context.Context, event *eventsDomain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventRepository) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.Event), args.Error(1)
}

func (m *mockEventRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*eventsDomain.Event, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.Event), args.Error(1)
}

func (m *mockEventRepository) UpdateStatus(ctx context.Context, update eventsDomain.StatusUpdate) (bool, error) {
	args := m.Called(ctx, update)
	return args.Bool(0), args.Error(1)
}

func (m *mockEventRepository) Heartbeat(ctx context.Context, id, claim uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, claim, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockEventRepository) ReclaimStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	args := m.Called(ctx, cutoff, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEventRepository) List(
	ctx context.Context,
	filter eventsDomain.HistoryFilter,
) ([]*eventsDomain.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.Event), args.Error(1)
}

func (m *mockEventRepository) Count(ctx context.Context, filter eventsDomain.HistoryFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *eventsDomain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, sub *eventsDomain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) GetByKey(
	ctx context.Context,
	appID uuid.UUID,
	eventType, webhookURL string,
) (*eventsDomain.Subscription, error) {
	args := m.Called(ctx, appID, eventType, webhookURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) Deactivate(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionRepository) ListActiveByEventType(
	ctx context.Context,
	eventType string,
) ([]*eventsDomain.Subscription, error) {
	args := m.Called(ctx, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) ListByApp(
	ctx context.Context,
	appID uuid.UUID,
	offset, limit int,
) ([]*eventsDomain.Subscription, error) {
	args := m.Called(ctx, appID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) CountByApp(ctx context.Context, appID uuid.UUID) (int, error) {
	args := m.Called(ctx, appID)
	return args.Int(0), args.Error(1)
}

type mockDeliveryRepository struct {
	mock.Mock
}

func (m *mockDeliveryRepository) Create(ctx context.Context, record *eventsDomain.DeliveryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockDeliveryRepository) ListByEvent(
	ctx context.Context,
	eventID uuid.UUID,
) ([]*eventsDomain.DeliveryRecord, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.DeliveryRecord), args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Submit(ctx context.Context, eventID uuid.UUID) bool {
	args := m.Called(ctx, eventID)
	return args.Bool(0)
}

type mockSealer struct {
	mock.Mock
}

func (m *mockSealer) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockSealer) GenerateSecret(ctx context.Context) (string, []byte, error) {
	args := m.Called(ctx)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).([]byte), args.Error(2)
}

func (m *mockSealer) Open(ctx context.Context, sealed []byte) ([]byte, error) {
	args := m.Called(ctx, sealed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockSealer) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

// memStore is an in-memory implementation of the three repositories. UpdateStatus
// applies the same conditions as the SQL repositories.
type memStore struct {
	mu            sync.Mutex
	events        map[uuid.UUID]*eventsDomain.Event
	claims        map[uuid.UUID]uuid.UUID
	subscriptions []*eventsDomain.Subscription
	deliveries    []*eventsDomain.DeliveryRecord
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uuid.UUID]*eventsDomain.Event),
		claims: make(map[uuid.UUID]uuid.UUID),
	}
}

// expire backdates the heartbeat of a processing event as if its worker had stalled.
func (s *memStore) expire(id uuid.UUID, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id].UpdatedAt = time.Now().UTC().Add(-age)
}

func (s *memStore) event(id uuid.UUID) eventsDomain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.events[id]
}

func (s *memStore) recordsFor(eventID uuid.UUID) []*eventsDomain.DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*eventsDomain.DeliveryRecord
	for _, r := range s.deliveries {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) addSubscription(sub *eventsDomain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = append(s.subscriptions, sub)
}

type memEventRepository struct{ *memStore }

func (r memEventRepository) Create(_ context.Context, event *eventsDomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *event
	r.events[e.ID] = &e
	return nil
}

func (r memEventRepository) Get(_ context.Context, id uuid.UUID) (*eventsDomain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, eventsDomain.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (r memEventRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*eventsDomain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*eventsDomain.Event, 0)
	for _, e := range r.events {
		if e.IsDue(now) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memEventRepository) UpdateStatus(_ context.Context, u eventsDomain.StatusUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[u.ID]
	if !ok || !slices.Contains(u.From, e.Status) {
		return false, nil
	}
	inc := 0
	if u.IncrementRetry {
		inc = 1
	}
	if e.RetryCount+inc > e.MaxRetries {
		return false, nil
	}
	if u.DueAt != nil && e.ScheduledFor != nil && e.ScheduledFor.After(*u.DueAt) {
		return false, nil
	}
	if u.To != eventsDomain.EventStatusProcessing && u.Claim != uuid.Nil && r.claims[u.ID] != u.Claim {
		return false, nil
	}
	if u.To == eventsDomain.EventStatusProcessing {
		r.claims[u.ID] = u.Claim
	} else {
		delete(r.claims, u.ID)
	}
	e.Status = u.To
	e.RetryCount += inc
	if u.ErrorMessage != nil {
		e.ErrorMessage = u.ErrorMessage
	}
	if u.ScheduledFor != nil {
		e.ScheduledFor = u.ScheduledFor
	}
	if u.ProcessedAt != nil {
		e.ProcessedAt = u.ProcessedAt
	}
	e.UpdatedAt = u.UpdatedAt
	return true, nil
}

func (r memEventRepository) Heartbeat(_ context.Context, id, claim uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.Status != eventsDomain.EventStatusProcessing || claim == uuid.Nil || r.claims[id] != claim {
		return false, nil
	}
	e.UpdatedAt = now
	return true, nil
}

func (r memEventRepository) ReclaimStale(_ context.Context, cutoff, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	msg := "delivery interrupted"
	for _, e := range r.events {
		if e.Status != eventsDomain.EventStatusProcessing || !e.UpdatedAt.Before(cutoff) {
			continue
		}
		n++
		delete(r.claims, e.ID)
		e.ErrorMessage = &msg
		e.UpdatedAt = now
		if e.RetryCount < e.MaxRetries {
			e.Status = eventsDomain.EventStatusRetrying
			e.RetryCount++
			due := now
			e.ScheduledFor = &due
			continue
		}
		e.Status = eventsDomain.EventStatusFailed
		processed := now
		e.ProcessedAt = &processed
	}
	return n, nil
}

func (r memEventRepository) List(context.Context, eventsDomain.HistoryFilter) ([]*eventsDomain.Event, error) {
	return []*eventsDomain.Event{}, nil
}

func (r memEventRepository) Count(context.Context, eventsDomain.HistoryFilter) (int, error) {
	return 0, nil
}

type memSubscriptionRepository struct{ *memStore }

func (r memSubscriptionRepository) Create(_ context.Context, sub *eventsDomain.Subscription) error {
	r.addSubscription(sub)
	return nil
}

func (r memSubscriptionRepository) Update(context.Context, *eventsDomain.Subscription) error {
	return nil
}

func (r memSubscriptionRepository) Get(_ context.Context, id uuid.UUID) (*eventsDomain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subscriptions {
		if sub.ID == id {
			return sub, nil
		}
	}
	return nil, eventsDomain.ErrSubscriptionNotFound
}

func (r memSubscriptionRepository) GetByKey(
	context.Context,
	uuid.UUID,
	string,
	string,
) (*eventsDomain.Subscription, error) {
	return nil, eventsDomain.ErrSubscriptionNotFound
}

func (r memSubscriptionRepository) Deactivate(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

func (r memSubscriptionRepository) ListActiveByEventType(
	_ context.Context,
	eventType string,
) ([]*eventsDomain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*eventsDomain.Subscription, 0)
	for _, sub := range r.subscriptions {
		if sub.IsActive && sub.EventType == eventType {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r memSubscriptionRepository) ListByApp(
	context.Context,
	uuid.UUID,
	int,
	int,
) ([]*eventsDomain.Subscription, error) {
	return []*eventsDomain.Subscription{}, nil
}

func (r memSubscriptionRepository) CountByApp(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

type memDeliveryRepository struct{ *memStore }

func (r memDeliveryRepository) Create(_ context.Context, record *eventsDomain.DeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, record)
	return nil
}

func (r memDeliveryRepository) ListByEvent(
	_ context.Context,
	eventID uuid.UUID,
) ([]*eventsDomain.DeliveryRecord, error) {
	return r.recordsFor(eventID), nil
}

// staticSender returns canned results without network access.
type staticSender struct {
	mu    sync.Mutex
	calls []eventsService.DeliveryRequest
	fn    func(req eventsService.DeliveryRequest) (*eventsService.DeliveryResult, error)
}

func (s *staticSender) Send(
	_ context.Context,
	req eventsService.DeliveryRequest,
) (*eventsService.DeliveryResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.fn(req)
}

func (s *staticSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
