package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
	"github.com/allisson/eventhub/internal/events/http/dto"
	eventsUseCase "github.com/allisson/eventhub/internal/events/usecase"
	"github.com/allisson/eventhub/internal/httputil"
	customValidation "github.com/allisson/eventhub/internal/validation"
)

// EventHandler handles HTTP requests for event publication and history.
type EventHandler struct {
	eventUseCase eventsUseCase.EventUseCase
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(eventUseCase eventsUseCase.EventUseCase, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventUseCase: eventUseCase,
		logger:       logger,
	}
}

// PublishHandler stores a new event and hands it to delivery.
// POST /v1/events - Returns 201 Created with the pending event.
func (h *EventHandler) PublishHandler(c *gin.Context) {
	caller, err := callerID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.PublishEventRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	var rawSource string
	if req.SourceAppID != nil {
		rawSource = *req.SourceAppID
	}
	sourceAppID, err := resolveAppID(caller, rawSource)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	event, err := h.eventUseCase.Publish(c.Request.Context(), eventsDomain.PublishEventInput{
		EventType:    req.EventType,
		SourceAppID:  &sourceAppID,
		Payload:      req.Payload,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapEventToResponse(event))
}

// HistoryHandler lists the caller's events, newest first.
// GET /v1/events/history?app_id=&event_type=&status=&start_date=&end_date=&limit=&offset=
func (h *EventHandler) HistoryHandler(c *gin.Context) {
	caller, err := callerID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	appID, err := resolveAppID(caller, c.Query("app_id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	filter := eventsDomain.HistoryFilter{
		AppID:     &appID,
		EventType: c.Query("event_type"),
		Offset:    offset,
		Limit:     limit,
	}

	if raw := c.Query("status"); raw != "" {
		status, err := eventsDomain.ParseEventStatus(raw)
		if err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		filter.Status = status
	}

	if filter.StartDate, err = httputil.ParseTimeQuery(c, "start_date"); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if filter.EndDate, err = httputil.ParseTimeQuery(c, "end_date"); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	events, total, err := h.eventUseCase.History(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, httputil.NewListResponse(dto.MapEventsToResponse(events), total))
}

// GetHandler returns a single event published by the caller.
// GET /v1/events/:id
func (h *EventHandler) GetHandler(c *gin.Context) {
	event, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.MapEventToResponse(event))
}

// DeliveriesHandler returns the delivery log of an event published by the caller.
// GET /v1/events/:id/deliveries
func (h *EventHandler) DeliveriesHandler(c *gin.Context) {
	event, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	records, err := h.eventUseCase.ListDeliveries(c.Request.Context(), event.ID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, httputil.NewListResponse(dto.MapDeliveryRecordsToResponse(records), len(records)))
}

// ownedEvent loads the event named by the id parameter. Events of other applications are
// reported as not found.
func (h *EventHandler) ownedEvent(c *gin.Context) (*eventsDomain.Event, bool) {
	caller, err := callerID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return nil, false
	}

	id, err := parseIDParam(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}

	event, err := h.eventUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return nil, false
	}

	if !ownedBy(event.SourceAppID, caller) {
		httputil.HandleErrorGin(c, eventsDomain.ErrEventNotFound, h.logger)
		return nil, false
	}

	return event, true
}

func ownedBy(source *uuid.UUID, caller uuid.UUID) bool {
	return source != nil && *source == caller
}
