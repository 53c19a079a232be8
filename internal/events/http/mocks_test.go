package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
	appsHTTP "github.com/allisson/eventhub/internal/apps/http"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

type mockEventUseCase struct {
	mock.Mock
}

func (m *mockEventUseCase) Publish(
	ctx context.Context,
	input eventsDomain.PublishEventInput,
) (*eventsDomain.Event, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.Event), args.Error(1)
}

func (m *mockEventUseCase) DueEvents(ctx context.Context, limit int) ([]*eventsDomain.Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.Event), args.Error(1)
}

func (m *mockEventUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	status eventsDomain.EventStatus,
	errorMessage *string,
) error {
	return m.Called(ctx, id, status, errorMessage).Error(0)
}

func (m *mockEventUseCase) Claim(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockEventUseCase) Heartbeat(ctx context.Context, id, claim uuid.UUID) error {
	return m.Called(ctx, id, claim).Error(0)
}

func (m *mockEventUseCase) Settle(
	ctx context.Context,
	id, claim uuid.UUID,
	status eventsDomain.EventStatus,
	errorMessage *string,
) error {
	return m.Called(ctx, id, claim, status, errorMessage).Error(0)
}

func (m *mockEventUseCase) History(
	ctx context.Context,
	filter eventsDomain.HistoryFilter,
) ([]*eventsDomain.Event, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*eventsDomain.Event), args.Int(1), args.Error(2)
}

func (m *mockEventUseCase) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.Event), args.Error(1)
}

func (m *mockEventUseCase) ListDeliveries(
	ctx context.Context,
	eventID uuid.UUID,
) ([]*eventsDomain.DeliveryRecord, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.DeliveryRecord), args.Error(1)
}

func (m *mockEventUseCase) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type mockSubscriptionUseCase struct {
	mock.Mock
}

func (m *mockSubscriptionUseCase) Subscribe(
	ctx context.Context,
	input eventsDomain.SubscribeInput,
) (*eventsDomain.SubscribeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.SubscribeOutput), args.Error(1)
}

func (m *mockSubscriptionUseCase) Unsubscribe(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionUseCase) ActiveSubscriptions(
	ctx context.Context,
	eventType string,
) ([]*eventsDomain.Subscription, error) {
	args := m.Called(ctx, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*eventsDomain.Subscription), args.Error(1)
}

func (m *mockSubscriptionUseCase) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventsDomain.Subscription), args.Error(1)
}

func (m *mockSubscriptionUseCase) ListByApp(
	ctx context.Context,
	appID uuid.UUID,
	offset, limit int,
) ([]*eventsDomain.Subscription, int, error) {
	args := m.Called(ctx, appID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*eventsDomain.Subscription), args.Int(1), args.Error(2)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCaller() *appsDomain.Application {
	return &appsDomain.Application{
		ID:     uuid.Must(uuid.NewV7()),
		Name:   "billing",
		Status: appsDomain.StatusActive,
	}
}

// createTestContext builds a gin context for method and url with body encoded as JSON.
// A non-nil caller is stored as the authenticated application.
func createTestContext(
	method, url string,
	body any,
	caller *appsDomain.Application,
) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(appsHTTP.WithApplication(req.Context(), caller))
	}
	c.Request = req

	return c, w
}

func decode(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

