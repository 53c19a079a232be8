package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
	"github.com/allisson/eventhub/internal/events/http/dto"
	eventsUseCase "github.com/allisson/eventhub/internal/events/usecase"
	"github.com/allisson/eventhub/internal/httputil"
	customValidation "github.com/allisson/eventhub/internal/validation"
)

// SubscriptionHandler handles HTTP requests for webhook subscriptions.
type SubscriptionHandler struct {
	subscriptionUseCase eventsUseCase.SubscriptionUseCase
	logger              *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(
	subscriptionUseCase eventsUseCase.SubscriptionUseCase,
	logger *slog.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionUseCase: subscriptionUseCase,
		logger:              logger,
	}
}

// SubscribeHandler creates a subscription or reactivates an identical one.
// POST /v1/events/subscribe - Returns 201 Created. The signing secret, when one was
// generated, is only included in this response.
func (h *SubscriptionHandler) SubscribeHandler(c *gin.Context) {
	caller, err := callerID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.SubscribeRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	var rawAppID string
	if req.AppID != nil {
		rawAppID = *req.AppID
	}
	appID, err := resolveAppID(caller, rawAppID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	output, err := h.subscriptionUseCase.Subscribe(c.Request.Context(), eventsDomain.SubscribeInput{
		AppID:          appID,
		EventType:      req.EventType,
		WebhookURL:     req.WebhookURL,
		FilterCriteria: req.FilterCriteria,
		DeliveryMode:   eventsDomain.DeliveryMode(req.DeliveryMode),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSubscribeOutputToResponse(output))
}

// UnsubscribeHandler deactivates a subscription owned by the caller.
// DELETE /v1/events/subscribe/:id - Returns 200 with success=false when the
// subscription does not exist.
func (h *SubscriptionHandler) UnsubscribeHandler(c *gin.Context) {
	caller, err := callerID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	id, err := parseIDParam(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	sub, err := h.subscriptionUseCase.Get(c.Request.Context(), id)
	if err != nil {
		if apperrors.Is(err, eventsDomain.ErrSubscriptionNotFound) {
			c.JSON(http.StatusOK, dto.UnsubscribeResponse{Success: false})
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if sub.AppID != caller {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	ok, err := h.subscriptionUseCase.Unsubscribe(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.UnsubscribeResponse{Success: ok})
}

// ListHandler lists the caller's subscriptions, active or not.
// GET /v1/events/subscriptions?limit=&offset=
func (h *SubscriptionHandler) ListHandler(c *gin.Context) {
	caller, err := callerID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	subs, total, err := h.subscriptionUseCase.ListByApp(c.Request.Context(), caller, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, httputil.NewListResponse(dto.MapSubscriptionsToResponse(subs), total))
}
