package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/eventhub/internal/database"
	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// MySQLSubscriptionRepository implements Subscription persistence for MySQL.
type MySQLSubscriptionRepository struct {
	db *sql.DB
}

// NewMySQLSubscriptionRepository creates a new MySQL Subscription repository.
func NewMySQLSubscriptionRepository(db *sql.DB) *MySQLSubscriptionRepository {
	return &MySQLSubscriptionRepository{db: db}
}

// Create inserts a new Subscription. A duplicate (app, event type, URL) key surfaces as a
// unique violation; see database.IsUniqueViolation.
func (m *MySQLSubscriptionRepository) Create(ctx context.Context, sub *eventsDomain.Subscription) error {
	querier := database.GetTx(ctx, m.db)

	filter, err := marshalDocument(sub.FilterCriteria)
	if err != nil {
		return err
	}

	query := `INSERT INTO subscriptions (` + subscriptionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		mysqlUUID(sub.ID),
		mysqlUUID(sub.AppID),
		sub.EventType,
		sub.WebhookURL,
		filter,
		string(sub.DeliveryMode),
		sub.IsActive,
		sub.SigningSecret,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create subscription")
	}
	return nil
}

// Update overwrites the mutable fields of a Subscription.
func (m *MySQLSubscriptionRepository) Update(ctx context.Context, sub *eventsDomain.Subscription) error {
	querier := database.GetTx(ctx, m.db)

	filter, err := marshalDocument(sub.FilterCriteria)
	if err != nil {
		return err
	}

	query := `UPDATE subscriptions
			  SET filter_criteria = ?, delivery_mode = ?, is_active = ?, signing_secret = ?, updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		filter,
		string(sub.DeliveryMode),
		sub.IsActive,
		sub.SigningSecret,
		sub.UpdatedAt,
		mysqlUUID(sub.ID),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update subscription")
	}
	updated, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !updated {
		return eventsDomain.ErrSubscriptionNotFound
	}
	return nil
}

// Get retrieves a Subscription by ID.
func (m *MySQLSubscriptionRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`

	sub, err := scanMySQLSubscription(querier.QueryRowContext(ctx, query, mysqlUUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsDomain.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get subscription")
	}
	return sub, nil
}

// GetByKey retrieves the Subscription for (appID, eventType, webhookURL) regardless of
// its active flag, locking the row inside a transaction.
func (m *MySQLSubscriptionRepository) GetByKey(
	ctx context.Context,
	appID uuid.UUID,
	eventType, webhookURL string,
) (*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE app_id = ? AND event_type = ? AND webhook_url = ?
			  FOR UPDATE`

	sub, err := scanMySQLSubscription(querier.QueryRowContext(ctx, query, mysqlUUID(appID), eventType, webhookURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsDomain.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get subscription by key")
	}
	return sub, nil
}

// Deactivate marks a Subscription inactive and reports whether it existed.
func (m *MySQLSubscriptionRepository) Deactivate(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE subscriptions SET is_active = FALSE, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, now, mysqlUUID(id))
	if err != nil {
		return false, apperrors.Wrap(err, "failed to deactivate subscription")
	}
	return affectedOne(result)
}

// ListActiveByEventType returns all active subscriptions for eventType, oldest first.
func (m *MySQLSubscriptionRepository) ListActiveByEventType(
	ctx context.Context,
	eventType string,
) ([]*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE event_type = ? AND is_active = TRUE
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, eventType)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active subscriptions")
	}
	return collectMySQLSubscriptions(rows)
}

// ListByApp returns the subscriptions owned by appID, newest first.
func (m *MySQLSubscriptionRepository) ListByApp(
	ctx context.Context,
	appID uuid.UUID,
	offset, limit int,
) ([]*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE app_id = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, mysqlUUID(appID), limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list subscriptions")
	}
	return collectMySQLSubscriptions(rows)
}

// CountByApp returns the number of subscriptions owned by appID.
func (m *MySQLSubscriptionRepository) CountByApp(ctx context.Context, appID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, m.db)

	var count int
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions WHERE app_id = ?`, mysqlUUID(appID)).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count subscriptions")
	}
	return count, nil
}

func scanMySQLSubscription(row interface{ Scan(dest ...any) error }) (*eventsDomain.Subscription, error) {
	var (
		sub    eventsDomain.Subscription
		filter []byte
		mode   string
	)

	err := row.Scan(
		&sub.ID,
		&sub.AppID,
		&sub.EventType,
		&sub.WebhookURL,
		&filter,
		&mode,
		&sub.IsActive,
		&sub.SigningSecret,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sub.FilterCriteria, err = unmarshalDocument(filter); err != nil {
		return nil, err
	}
	sub.DeliveryMode = eventsDomain.DeliveryMode(mode)
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()

	return &sub, nil
}

func collectMySQLSubscriptions(rows *sql.Rows) ([]*eventsDomain.Subscription, error) {
	defer func() { _ = rows.Close() }()

	subs := make([]*eventsDomain.Subscription, 0)
	for rows.Next() {
		sub, err := scanMySQLSubscription(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan subscription")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate subscriptions")
	}
	return subs, nil
}
