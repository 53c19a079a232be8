// Package repository implements application persistence for PostgreSQL and MySQL.
// PostgreSQL uses native UUID types, MySQL uses BINARY(16).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
	"github.com/allisson/eventhub/internal/database"
	apperrors "github.com/allisson/eventhub/internal/errors"
)

// PostgreSQLApplicationRepository implements Application persistence for PostgreSQL.
type PostgreSQLApplicationRepository struct {
	db *sql.DB
}

// NewPostgreSQLApplicationRepository creates a new PostgreSQL Application repository.
func NewPostgreSQLApplicationRepository(db *sql.DB) *PostgreSQLApplicationRepository {
	return &PostgreSQLApplicationRepository{db: db}
}

// Create inserts a new Application.
func (p *PostgreSQLApplicationRepository) Create(ctx context.Context, app *appsDomain.Application) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO applications (id, name, status, api_key_hash, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		app.ID,
		app.Name,
		string(app.Status),
		app.APIKeyHash,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create application")
	}
	return nil
}

// Get retrieves an Application by ID.
func (p *PostgreSQLApplicationRepository) Get(ctx context.Context, id uuid.UUID) (*appsDomain.Application, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, status, api_key_hash, created_at, updated_at
			  FROM applications WHERE id = $1`

	var app appsDomain.Application
	var status string

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&app.ID,
		&app.Name,
		&status,
		&app.APIKeyHash,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appsDomain.ErrApplicationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get application")
	}
	app.Status = appsDomain.Status(status)

	return &app, nil
}

// UpdateStatus sets the status of an Application.
func (p *PostgreSQLApplicationRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status appsDomain.Status,
	updatedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, string(status), updatedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update application status")
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if rows == 0 {
		return appsDomain.ErrApplicationNotFound
	}
	return nil
}
