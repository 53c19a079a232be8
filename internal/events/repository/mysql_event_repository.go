package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/eventhub/internal/database"
	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// MySQLEventRepository implements Event persistence for MySQL.
type MySQLEventRepository struct {
	db *sql.DB
}

// NewMySQLEventRepository creates a new MySQL Event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// Create inserts a new Event.
func (m *MySQLEventRepository) Create(ctx context.Context, event *eventsDomain.Event) error {
	querier := database.GetTx(ctx, m.db)

	id, err := uuidBytes(event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event id")
	}
	sourceAppID, err := nullableUUIDBytes(event.SourceAppID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal source app id")
	}
	payload, err := marshalDocument(event.Payload)
	if err != nil {
		return err
	}

	query := `INSERT INTO events (` + eventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		event.EventType,
		sourceAppID,
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
func (m *MySQLEventRepository) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := uuidBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal event id")
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	event, err := scanMySQLEvent(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsDomain.ErrEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get event")
	}
	return event, nil
}

// ListDue returns pending or retrying events due at now, oldest first.
func (m *MySQLEventRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*eventsDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventColumns + ` FROM events
			  WHERE status IN ('pending', 'retrying')
			    AND (scheduled_for IS NULL OR scheduled_for <= ?)
			  ORDER BY created_at ASC, id ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due events")
	}
	return collectMySQLEvents(rows)
}

// UpdateStatus applies a conditional status write and reports whether a row changed.
func (m *MySQLEventRepository) UpdateStatus(
	ctx context.Context,
	update eventsDomain.StatusUpdate,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := uuidBytes(update.ID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal event id")
	}

	increment := 0
	if update.IncrementRetry {
		increment = 1
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(update.From)), ", ")
	query := `UPDATE events
			  SET status = ?,
			      error_message = COALESCE(?, error_message),
			      retry_count = retry_count + ?,
			      scheduled_for = COALESCE(?, scheduled_for),
			      processed_at = COALESCE(?, processed_at),
			      updated_at = ?,
			      claim_token = ?
			  WHERE id = ?
			    AND status IN (` + placeholders + `)
			    AND retry_count + ? <= max_retries`
	var claim []byte
	if token := storedClaim(update); token.Valid {
		claim = token.UUID[:]
	}
	args := []any{
		string(update.To),
		update.ErrorMessage,
		increment,
		update.ScheduledFor,
		update.ProcessedAt,
		update.UpdatedAt,
		claim,
		id,
	}
	for _, status := range update.From {
		args = append(args, string(status))
	}
	args = append(args, increment)
	if update.DueAt != nil {
		query += ` AND (scheduled_for IS NULL OR scheduled_for <= ?)`
		args = append(args, *update.DueAt)
	}
	if checksClaim(update) {
		query += ` AND claim_token = ?`
		args = append(args, mysqlUUID(update.Claim))
	}

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update event status")
	}
	return affectedOne(result)
}

// Heartbeat refreshes updated_at of a processing event while claim is still its claim
// token. It reports false once the claim is gone.
func (m *MySQLEventRepository) Heartbeat(ctx context.Context, id, claim uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE events SET updated_at = ?
			  WHERE id = ? AND status = 'processing' AND claim_token = ?`

	result, err := querier.ExecContext(ctx, query, now, mysqlUUID(id), mysqlUUID(claim))
	if err != nil {
		return false, apperrors.Wrap(err, "failed to refresh event claim")
	}
	return affectedOne(result)
}

// ReclaimStale returns events whose processing heartbeat stopped before cutoff to the
// retry path, or fails them when their retry budget is spent. The claim token is
// cleared so the interrupted worker can no longer settle the event.
func (m *MySQLEventRepository) ReclaimStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	retryQuery := `UPDATE events
				   SET status = 'retrying', retry_count = retry_count + 1, scheduled_for = ?,
				       error_message = ?, updated_at = ?, claim_token = NULL
				   WHERE status = 'processing' AND updated_at < ? AND retry_count < max_retries`
	failQuery := `UPDATE events
				  SET status = 'failed', processed_at = ?, error_message = ?, updated_at = ?,
				      claim_token = NULL
				  WHERE status = 'processing' AND updated_at < ? AND retry_count >= max_retries`

	var total int64
	for _, query := range []string{retryQuery, failQuery} {
		result, err := querier.ExecContext(ctx, query, now, InterruptedMessage, now, cutoff)
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
func (m *MySQLEventRepository) List(
	ctx context.Context,
	filter eventsDomain.HistoryFilter,
) ([]*eventsDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := historyWhere(filter, mysqlPlaceholder, mysqlUUID)
	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + eventColumns + ` FROM events` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list events")
	}
	return collectMySQLEvents(rows)
}

// Count returns the number of events matching filter, ignoring pagination.
func (m *MySQLEventRepository) Count(ctx context.Context, filter eventsDomain.HistoryFilter) (int, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := historyWhere(filter, mysqlPlaceholder, mysqlUUID)

	var count int
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count events")
	}
	return count, nil
}

func scanMySQLEvent(row interface{ Scan(dest ...any) error }) (*eventsDomain.Event, error) {
	var (
		event        eventsDomain.Event
		rawID        []byte
		sourceAppID  []byte
		payload      []byte
		status       string
		scheduledFor sql.NullTime
		errorMessage sql.NullString
		processedAt  sql.NullTime
	)

	err := row.Scan(
		&rawID,
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

	if err := event.ID.UnmarshalBinary(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal event id")
	}
	if event.SourceAppID, err = uuidFromNullableBytes(sourceAppID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal source app id")
	}
	if event.Payload, err = unmarshalDocument(payload); err != nil {
		return nil, err
	}
	event.Status = eventsDomain.EventStatus(status)
	event.ScheduledFor = nullTimePtr(scheduledFor)
	event.ErrorMessage = nullStringPtr(errorMessage)
	event.ProcessedAt = nullTimePtr(processedAt)
	event.CreatedAt = event.CreatedAt.UTC()
	event.UpdatedAt = event.UpdatedAt.UTC()

	return &event, nil
}

func collectMySQLEvents(rows *sql.Rows) ([]*eventsDomain.Event, error) {
	defer func() { _ = rows.Close() }()

	events := make([]*eventsDomain.Event, 0)
	for rows.Next() {
		event, err := scanMySQLEvent(rows)
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

func mysqlPlaceholder(int) string {
	return "?"
}

// mysqlUUID encodes id for a BINARY(16) column. A UUID always marshals to 16 bytes.
func mysqlUUID(id uuid.UUID) any {
	b, _ := id.MarshalBinary()
	return b
}

func uuidBytes(id uuid.UUID) ([]byte, error) {
	return id.MarshalBinary()
}

func nullableUUIDBytes(id *uuid.UUID) ([]byte, error) {
	if id == nil {
		return nil, nil
	}
	return id.MarshalBinary()
}

func uuidFromNullableBytes(b []byte) (*uuid.UUID, error) {
	if b == nil {
		return nil, nil
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return &id, nil
}
