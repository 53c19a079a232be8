package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appsUseCase "github.com/allisson/eventhub/internal/apps/usecase"
	apperrors "github.com/allisson/eventhub/internal/errors"
	"github.com/allisson/eventhub/internal/httputil"
)

// AuthenticationMiddleware authenticates "Authorization: Bearer <app_id>.<api_key>" and
// stores the application in the request context for GetApplication.
//
//   - missing or malformed header, unknown application, wrong key → 401
//   - suspended application → 403
func AuthenticationMiddleware(appUseCase appsUseCase.ApplicationUseCase, logger *slog.Logger) gin.HandlerFunc {
	const bearerPrefix = "bearer "

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) <= len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			return
		}

		app, err := appUseCase.Authenticate(c.Request.Context(), strings.TrimSpace(authHeader[len(bearerPrefix):]))
		if err != nil {
			logger.Debug("authentication failed", slog.Any("error", err))
			httputil.HandleErrorGin(c, err, logger)
			return
		}

		trace.SpanFromContext(c.Request.Context()).SetAttributes(attribute.String("app.id", app.ID.String()))
		c.Request = c.Request.WithContext(WithApplication(c.Request.Context(), app))
		c.Next()
	}
}
