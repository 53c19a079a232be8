package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	appsUseCase "github.com/allisson/eventhub/internal/apps/usecase"
)

// RunCreateApp registers an application and prints its ID and API key. The key is
// only recoverable here; the hub stores an Argon2id hash.
//
// Requirements: Database must be migrated and accessible.
func RunCreateApp(
	ctx context.Context,
	appUseCase appsUseCase.ApplicationUseCase,
	logger *slog.Logger,
	name string,
	format string,
	io IOTuple,
) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	logger.Info("creating new application", slog.String("name", name))

	output, err := appUseCase.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if format == "json" {
		if err := writeJSON(io.Writer, map[string]string{
			"app_id":  output.ID.String(),
			"name":    name,
			"api_key": output.APIKey,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(io.Writer, "Application created successfully\n")
		_, _ = fmt.Fprintf(io.Writer, "App ID:  %s\n", output.ID)
		_, _ = fmt.Fprintf(io.Writer, "API Key: %s\n", output.APIKey)
		_, _ = fmt.Fprintln(io.Writer, "\nStore the API key now. It cannot be retrieved again.")
	}

	logger.Info("application created successfully", slog.String("app_id", output.ID.String()))
	return nil
}
