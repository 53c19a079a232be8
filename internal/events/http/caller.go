// Package http provides HTTP handlers for event publication, history and subscriptions.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsHTTP "github.com/allisson/eventhub/internal/apps/http"
	apperrors "github.com/allisson/eventhub/internal/errors"
)

var errInvalidID = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid id")

// callerID returns the id of the authenticated application.
func callerID(c *gin.Context) (uuid.UUID, error) {
	app, ok := appsHTTP.GetApplication(c.Request.Context())
	if !ok {
		return uuid.Nil, apperrors.ErrUnauthorized
	}
	return app.ID, nil
}

// resolveAppID returns the application a request acts for. An empty value defaults to
// the caller; any other application is forbidden.
func resolveAppID(caller uuid.UUID, raw string) (uuid.UUID, error) {
	if raw == "" {
		return caller, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid app id")
	}
	if id != caller {
		return uuid.Nil, apperrors.ErrForbidden
	}
	return id, nil
}

func parseIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}
