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

// MySQLApplicationRepository implements Application persistence for MySQL.
type MySQLApplicationRepository struct {
	db *sql.DB
}

// NewMySQLApplicationRepository creates a new MySQL Application repository.
func NewMySQLApplicationRepository(db *sql.DB) *MySQLApplicationRepository {
	return &MySQLApplicationRepository{db: db}
}

// Create inserts a new Application.
func (m *MySQLApplicationRepository) Create(ctx context.Context, app *appsDomain.Application) error {
	querier := database.GetTx(ctx, m.db)

	id, err := app.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal application id")
	}

	query := `INSERT INTO applications (id, name, status, api_key_hash, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLApplicationRepository) Get(ctx context.Context, id uuid.UUID) (*appsDomain.Application, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal application id")
	}

	query := `SELECT id, name, status, api_key_hash, created_at, updated_at
			  FROM applications WHERE id = ?`

	var app appsDomain.Application
	var rawID []byte
	var status string

	err = querier.QueryRowContext(ctx, query, idBytes).Scan(
		&rawID,
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
	if err := app.ID.UnmarshalBinary(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal application id")
	}
	app.Status = appsDomain.Status(status)

	return &app, nil
}

// UpdateStatus sets the status of an Application.
func (m *MySQLApplicationRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status appsDomain.Status,
	updatedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal application id")
	}

	// MySQL reports zero affected rows when the value is unchanged, so check existence instead.
	query := `UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`
	if _, err := querier.ExecContext(ctx, query, string(status), updatedAt, idBytes); err != nil {
		return apperrors.Wrap(err, "failed to update application status")
	}

	var exists int
	err = querier.QueryRowContext(ctx, `SELECT 1 FROM applications WHERE id = ?`, idBytes).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return appsDomain.ErrApplicationNotFound
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to update application status")
	}
	return nil
}
