// Package http provides the application authentication and rate limiting middleware.
package http

import (
	"context"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
)

type applicationKey struct{}

// WithApplication stores the authenticated application in ctx.
func WithApplication(ctx context.Context, app *appsDomain.Application) context.Context {
	return context.WithValue(ctx, applicationKey{}, app)
}

// GetApplication returns the authenticated application stored in ctx.
func GetApplication(ctx context.Context) (*appsDomain.Application, bool) {
	app, ok := ctx.Value(applicationKey{}).(*appsDomain.Application)
	return app, ok && app != nil
}
