// Package repository implements persistence for events, subscriptions and delivery records.
//
// PostgreSQL uses native UUID and JSONB types. MySQL stores UUIDs as BINARY(16) and
// documents as JSON. All methods honor the transaction carried by the context.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/eventhub/internal/database"
	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

const eventColumns = `id, event_type, source_app_id, payload, status, scheduled_for, retry_count,
	max_retries, error_message, processed_at, created_at, updated_at`

// InterruptedMessage is stored on events recovered from a stale processing claim.
const InterruptedMessage = "delivery interrupted"

// PostgreSQLEventRepository implements Event persistence for PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQL Event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create inserts a new Event.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *eventsDomain.Event) error {
	querier := database.GetTx(ctx, p.db)

	payload, err := marshalDocument(event.Payload)
	if err != nil {
		return err
	}

	query := `INSERT INTO events (` + eventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.EventType,
		event.SourceAppID,
		payload,
		string(event.Status),
		event.ScheduledFor,
		event.RetryCount,
		event.MaxRetries,
		event.ErrorMessage,
		event.ProcessedAt,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create event")
	}
	return nil
}

// Get retrieves an Event by ID.
func (p *PostgreSQLEventRepository) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanPostgreSQLEvent(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsDomain.ErrEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get event")
	}
	return event, nil
}

// ListDue returns pending or retrying events due at now, oldest first.
func (p *PostgreSQLEventRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*eventsDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + ` FROM events
			  WHERE status IN ('pending', 'retrying')
			    AND (scheduled_for IS NULL OR scheduled_for <= $1)
			  ORDER BY created_at ASC, id ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due events")
	}
	return collectPostgreSQLEvents(rows)
}

// UpdateStatus applies a conditional status write and reports whether a row changed.
func (p *PostgreSQLEventRepository) UpdateStatus(
	ctx context.Context,
	update eventsDomain.StatusUpdate,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	increment := 0
	if update.IncrementRetry {
		increment = 1
	}

	query := `UPDATE events
			  SET status = $1,
			      error_message = COALESCE($2, error_message),
			      retry_count = retry_count + $3,
			      scheduled_for = COALESCE($4, scheduled_for),
			      processed_at = COALESCE($5, processed_at),
			      updated_at = $6,
			      claim_token = $7
			  WHERE id = $8
			    AND status = ANY($9::text[])
			    AND retry_count + $3 <= max_retries`
	args := []any{
		string(update.To),
		update.ErrorMessage,
		increment,
		update.ScheduledFor,
		update.ProcessedAt,
		update.UpdatedAt,
		storedClaim(update),
		update.ID,
		pq.Array(statusStrings(update.From)),
	}
	if update.DueAt != nil {
		args = append(args, *update.DueAt)
		query += fmt.Sprintf(` AND (scheduled_for IS NULL OR scheduled_for <= $%d)`, len(args))
	}
	if checksClaim(update) {
		args = append(args, update.Claim)
		query += fmt.Sprintf(` AND claim_token = $%d`, len(args))
	}

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update event status")
	}
	return affectedOne(result)
}

// Heartbeat refreshes updated_at of a processing event while claim is still its claim
// token. It reports false once the claim is gone.
func (p *PostgreSQLEventRepository) Heartbeat(
	ctx context.Context,
	id, claim uuid.UUID,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE events SET updated_at = $1
			  WHERE id = $2 AND status = 'processing' AND claim_token = $3`

	result, err := querier.ExecContext(ctx, query, now, id, claim)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to refresh event claim")
	}
	return affectedOne(result)
}

// ReclaimStale returns events whose processing heartbeat stopped before cutoff to the
// retry path, or fails them when their retry budget is spent. The claim token is
// cleared so the interrupted worker can no longer settle the event.
func (p *PostgreSQLEventRepository) ReclaimStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	retryQuery := `UPDATE events
				   SET status = 'retrying', retry_count = retry_count + 1, scheduled_for = $1,
				       error_message = $2, updated_at = $1, claim_token = NULL
				   WHERE status = 'processing' AND updated_at < $3 AND retry_count < max_retries`
	failQuery := `UPDATE events
				  SET status = 'failed', error_message = $2, processed_at = $1, updated_at = $1,
				      claim_token = NULL
				  WHERE status = 'processing' AND updated_at < $3 AND retry_count >= max_retries`

	var total int64
	for _, query := range []string{retryQuery, failQuery} {
		result, err := querier.ExecContext(ctx, query, now, InterruptedMessage, cutoff)
		if err != nil {
			return total, apperrors.Wrap(err, "failed to reclaim stale events")
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, apperrors.Wrap(err, "failed to read affected rows")
		}
		total += n
	}
	return total, nil
}

// List returns events matching filter, newest first.
func (p *PostgreSQLEventRepository) List(
	ctx context.Context,
	filter eventsDomain.HistoryFilter,
) ([]*eventsDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := historyWhere(filter, postgresPlaceholder, postgresUUID)
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)-1, len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list events")
	}
	return collectPostgreSQLEvents(rows)
}

// Count returns the number of events matching filter, ignoring pagination.
func (p *PostgreSQLEventRepository) Count(ctx context.Context, filter eventsDomain.HistoryFilter) (int, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := historyWhere(filter, postgresPlaceholder, postgresUUID)

	var count int
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count events")
	}
	return count, nil
}

func scanPostgreSQLEvent(row interface{ Scan(dest ...any) error }) (*eventsDomain.Event, error) {
	var (
		event        eventsDomain.Event
		sourceAppID  uuid.NullUUID
		payload      []byte
		status       string
		scheduledFor sql.NullTime
		errorMessage sql.NullString
		processedAt  sql.NullTime
	)

	err := row.Scan(
		&event.ID,
		&event.EventType,
		&sourceAppID,
		&payload,
		&status,
		&scheduledFor,
		&event.RetryCount,
		&event.MaxRetries,
		&errorMessage,
		&processedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if event.Payload, err = unmarshalDocument(payload); err != nil {
		return nil, err
	}
	event.Status = eventsDomain.EventStatus(status)
	event.SourceAppID = nullUUIDPtr(sourceAppID)
	event.ScheduledFor = nullTimePtr(scheduledFor)
	event.ErrorMessage = nullStringPtr(errorMessage)
	event.ProcessedAt = nullTimePtr(processedAt)

	return &event, nil
}

func collectPostgreSQLEvents(rows *sql.Rows) ([]*eventsDomain.Event, error) {
	defer func() { _ = rows.Close() }()

	events := make([]*eventsDomain.Event, 0)
	for rows.Next() {
		event, err := scanPostgreSQLEvent(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan event")
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate events")
	}
	return events, nil
}

func postgresPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func postgresUUID(id uuid.UUID) any {
	return id
}
