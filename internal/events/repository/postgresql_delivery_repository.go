package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/eventhub/internal/database"
	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

const deliveryColumns = `id, event_id, subscription_id, attempt_number, status, http_status_code,
	response_body, error_message, duration_ms, delivered_at, created_at`

// PostgreSQLDeliveryRepository implements DeliveryRecord persistence for PostgreSQL.
type PostgreSQLDeliveryRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeliveryRepository creates a new PostgreSQL DeliveryRecord repository.
func NewPostgreSQLDeliveryRepository(db *sql.DB) *PostgreSQLDeliveryRepository {
	return &PostgreSQLDeliveryRepository{db: db}
}

// Create inserts a DeliveryRecord.
func (p *PostgreSQLDeliveryRepository) Create(ctx context.Context, record *eventsDomain.DeliveryRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO delivery_records (` + deliveryColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.EventID,
		record.SubscriptionID,
		record.AttemptNumber,
		string(record.Status),
		record.HTTPStatusCode,
		record.ResponseBody,
		record.ErrorMessage,
		record.DurationMs,
		record.DeliveredAt,
		record.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create delivery record")
	}
	return nil
}

// ListByEvent returns every delivery record of eventID in attempt order.
func (p *PostgreSQLDeliveryRepository) ListByEvent(
	ctx context.Context,
	eventID uuid.UUID,
) ([]*eventsDomain.DeliveryRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deliveryColumns + ` FROM delivery_records
			  WHERE event_id = $1
			  ORDER BY attempt_number ASC, created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list delivery records")
	}
	return collectDeliveryRecords(rows)
}

// scanDeliveryRecord works for both drivers: uuid.UUID scans 16-byte BINARY columns too.
func scanDeliveryRecord(row interface{ Scan(dest ...any) error }) (*eventsDomain.DeliveryRecord, error) {
	var (
		record         eventsDomain.DeliveryRecord
		status         string
		httpStatusCode sql.NullInt64
		responseBody   sql.NullString
		errorMessage   sql.NullString
		deliveredAt    sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.EventID,
		&record.SubscriptionID,
		&record.AttemptNumber,
		&status,
		&httpStatusCode,
		&responseBody,
		&errorMessage,
		&record.DurationMs,
		&deliveredAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Status = eventsDomain.DeliveryStatus(status)
	record.HTTPStatusCode = nullInt64Ptr(httpStatusCode)
	record.ResponseBody = nullStringPtr(responseBody)
	record.ErrorMessage = nullStringPtr(errorMessage)
	record.DeliveredAt = nullTimePtr(deliveredAt)
	record.CreatedAt = record.CreatedAt.UTC()

	return &record, nil
}

func collectDeliveryRecords(rows *sql.Rows) ([]*eventsDomain.DeliveryRecord, error) {
	defer func() { _ = rows.Close() }()

	records := make([]*eventsDomain.DeliveryRecord, 0)
	for rows.Next() {
		record, err := scanDeliveryRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan delivery record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate delivery records")
	}
	return records, nil
}
