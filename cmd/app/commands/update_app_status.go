package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
	appsUseCase "github.com/allisson/eventhub/internal/apps/usecase"
)

// RunUpdateAppStatus activates or suspends an application. Suspended applications are
// rejected by the API until reactivated.
func RunUpdateAppStatus(
	ctx context.Context,
	appUseCase appsUseCase.ApplicationUseCase,
	logger *slog.Logger,
	idStr string,
	statusStr string,
	format string,
	io IOTuple,
) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid application ID: %w", err)
	}

	status, err := appsDomain.ParseStatus(statusStr)
	if err != nil {
		return fmt.Errorf("invalid status %q: %w", statusStr, err)
	}

	if err := appUseCase.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}

	if format == "json" {
		if err := writeJSON(io.Writer, map[string]string{
			"app_id": id.String(),
			"status": string(status),
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(io.Writer, "Application %s is now %s\n", id, status)
	}

	logger.Info("application status updated",
		slog.String("app_id", id.String()),
		slog.String("status", string(status)),
	)
	return nil
}
