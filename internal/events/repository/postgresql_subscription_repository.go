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

const subscriptionColumns = `id, app_id, event_type, webhook_url, filter_criteria, delivery_mode,
	is_active, signing_secret, created_at, updated_at`

// PostgreSQLSubscriptionRepository implements Subscription persistence for PostgreSQL.
type PostgreSQLSubscriptionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSubscriptionRepository creates a new PostgreSQL Subscription repository.
func NewPostgreSQLSubscriptionRepository(db *sql.DB) *PostgreSQLSubscriptionRepository {
	return &PostgreSQLSubscriptionRepository{db: db}
}

// Create inserts a new Subscription. A duplicate (app, event type, URL) key surfaces as a
// unique violation; see database.IsUniqueViolation.
func (p *PostgreSQLSubscriptionRepository) Create(ctx context.Context, sub *eventsDomain.Subscription) error {
	querier := database.GetTx(ctx, p.db)

	filter, err := marshalDocument(sub.FilterCriteria)
	if err != nil {
		return err
	}

	query := `INSERT INTO subscriptions (` + subscriptionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(
		ctx,
		query,
		sub.ID,
		sub.AppID,
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
func (p *PostgreSQLSubscriptionRepository) Update(ctx context.Context, sub *eventsDomain.Subscription) error {
	querier := database.GetTx(ctx, p.db)

	filter, err := marshalDocument(sub.FilterCriteria)
	if err != nil {
		return err
	}

	query := `UPDATE subscriptions
			  SET filter_criteria = $1, delivery_mode = $2, is_active = $3, signing_secret = $4, updated_at = $5
			  WHERE id = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		filter,
		string(sub.DeliveryMode),
		sub.IsActive,
		sub.SigningSecret,
		sub.UpdatedAt,
		sub.ID,
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
func (p *PostgreSQLSubscriptionRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	sub, err := scanPostgreSQLSubscription(querier.QueryRowContext(ctx, query, id))
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
func (p *PostgreSQLSubscriptionRepository) GetByKey(
	ctx context.Context,
	appID uuid.UUID,
	eventType, webhookURL string,
) (*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE app_id = $1 AND event_type = $2 AND webhook_url = $3
			  FOR UPDATE`

	sub, err := scanPostgreSQLSubscription(querier.QueryRowContext(ctx, query, appID, eventType, webhookURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsDomain.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get subscription by key")
	}
	return sub, nil
}

// Deactivate marks a Subscription inactive and reports whether it existed.
func (p *PostgreSQLSubscriptionRepository) Deactivate(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE subscriptions SET is_active = FALSE, updated_at = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to deactivate subscription")
	}
	return affectedOne(result)
}

// ListActiveByEventType returns all active subscriptions for eventType, oldest first.
func (p *PostgreSQLSubscriptionRepository) ListActiveByEventType(
	ctx context.Context,
	eventType string,
) ([]*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE event_type = $1 AND is_active = TRUE
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, eventType)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active subscriptions")
	}
	return collectPostgreSQLSubscriptions(rows)
}

// ListByApp returns the subscriptions owned by appID, newest first.
func (p *PostgreSQLSubscriptionRepository) ListByApp(
	ctx context.Context,
	appID uuid.UUID,
	offset, limit int,
) ([]*eventsDomain.Subscription, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE app_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, appID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list subscriptions")
	}
	return collectPostgreSQLSubscriptions(rows)
}

// CountByApp returns the number of subscriptions owned by appID.
func (p *PostgreSQLSubscriptionRepository) CountByApp(ctx context.Context, appID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, p.db)

	var count int
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions WHERE app_id = $1`, appID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count subscriptions")
	}
	return count, nil
}

func scanPostgreSQLSubscription(row interface{ Scan(dest ...any) error }) (*eventsDomain.Subscription, error) {
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

	return &sub, nil
}

func collectPostgreSQLSubscriptions(rows *sql.Rows) ([]*eventsDomain.Subscription, error) {
	defer func() { _ = rows.Close() }()

	subs := make([]*eventsDomain.Subscription, 0)
	for rows.Next() {
		sub, err := scanPostgreSQLSubscription(rows)
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
