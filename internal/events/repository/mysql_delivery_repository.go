package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/eventhub/internal/database"
	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// MySQLDeliveryRepository implements DeliveryRecord persistence for MySQL.
type MySQLDeliveryRepository struct {
	db *sql.DB
}

// NewMySQLDeliveryRepository creates a new MySQL DeliveryRecord repository.
func NewMySQLDeliveryRepository(db *sql.DB) *MySQLDeliveryRepository {
	return &MySQLDeliveryRepository{db: db}
}

// Create inserts a DeliveryRecord.
func (m *MySQLDeliveryRepository) Create(ctx context.Context, record *eventsDomain.DeliveryRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO delivery_records (` + deliveryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		mysqlUUID(record.ID),
		mysqlUUID(record.EventID),
		mysqlUUID(record.SubscriptionID),
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
func (m *MySQLDeliveryRepository) ListByEvent(
	ctx context.Context,
	eventID uuid.UUID,
) ([]*eventsDomain.DeliveryRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deliveryColumns + ` FROM delivery_records
			  WHERE event_id = ?
			  ORDER BY attempt_number ASC, created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, mysqlUUID(eventID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list delivery records")
	}
	return collectDeliveryRecords(rows)
}
