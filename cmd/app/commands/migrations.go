package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/eventhub/internal/database"
)

// RunMigrations applies every pending migration under dir for the configured driver.
// Returns nil when the schema is already current.
func RunMigrations(logger *slog.Logger, dir, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	var sourceURL, databaseURL string
	switch driver {
	case database.DriverPostgres:
		sourceURL = "file://" + filepath.Join(dir, "postgresql")
		databaseURL = connectionString
	case database.DriverMySQL:
		sourceURL = "file://" + filepath.Join(dir, "mysql")
		databaseURL = mysqlMigrateURL(connectionString)
	default:
		return fmt.Errorf("unsupported database driver: %q", driver)
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// mysqlMigrateURL turns a go-sql-driver DSN into the mysql:// URL golang-migrate expects.
func mysqlMigrateURL(dsn string) string {
	if strings.HasPrefix(dsn, "mysql://") {
		return dsn
	}
	return "mysql://" + dsn
}
