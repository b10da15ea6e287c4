package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("subscription not found")

const columns = `id, user_id, channel_id, status, started_at, expires_at, payment_id, is_trial, expiry_notified, created_at, updated_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Subscription, error) {
	s := &Subscription{}
	err := r.db.GetContext(ctx, s, `
		SELECT `+columns+` FROM subscriptions WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+columns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return subs, err
}

func (r *PostgresRepository) HasUsedTrial(ctx context.Context, userID, channelID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND channel_id = $2 AND is_trial = true
		)
	`, userID, channelID)
	return exists, err
}

func (r *PostgresRepository) GetLiveTx(ctx context.Context, tx *sqlx.Tx, userID, channelID int64) (*Subscription, error) {
	s := &Subscription{}
	err := tx.GetContext(ctx, s, `
		SELECT `+columns+`
		FROM subscriptions
		WHERE user_id = $1
		  AND channel_id = $2
		  AND status IN ('active', 'trial')
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY expires_at DESC NULLS FIRST
		LIMIT 1
		FOR UPDATE
	`, userID, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, userID, channelID int64, status Status, expiresAt *time.Time, paymentID *int64, isTrial bool) (*Subscription, error) {
	s := &Subscription{}
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (user_id, channel_id, status, started_at, expires_at, payment_id, is_trial)
		VALUES ($1, $2, $3, NOW(), $4, $5, $6)
		RETURNING `+columns+`
	`, userID, channelID, status, expiresAt, paymentID, isTrial).StructScan(s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) ExtendTx(ctx context.Context, tx *sqlx.Tx, id int64, expiresAt *time.Time, paymentID *int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET expires_at = $1,
		    payment_id = COALESCE($2, payment_id),
		    status = 'active',
		    expiry_notified = false,
		    updated_at = NOW()
		WHERE id = $3
	`, expiresAt, paymentID, id)
	return err
}

func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]SweepItem, error) {
	if limit <= 0 {
		limit = 500
	}
	items := []SweepItem{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT s.id, s.user_id, s.channel_id, s.status, s.started_at, s.expires_at,
		       s.payment_id, s.is_trial, s.expiry_notified, s.created_at, s.updated_at,
		       c.telegram_chat_id AS channel_telegram_id,
		       c.title AS channel_title,
		       u.telegram_id AS user_telegram_id
		FROM subscriptions s
		JOIN channels c ON c.id = s.channel_id
		JOIN users u ON u.id = s.user_id
		WHERE s.status IN ('active', 'trial')
		  AND s.expires_at IS NOT NULL
		  AND s.expires_at <= $1
		ORDER BY s.expires_at
		LIMIT $2
	`, now, limit)
	return items, err
}

func (r *PostgresRepository) MarkExpired(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *PostgresRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]SweepItem, error) {
	items := []SweepItem{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT s.id, s.user_id, s.channel_id, s.status, s.started_at, s.expires_at,
		       s.payment_id, s.is_trial, s.expiry_notified, s.created_at, s.updated_at,
		       c.telegram_chat_id AS channel_telegram_id,
		       c.title AS channel_title,
		       u.telegram_id AS user_telegram_id
		FROM subscriptions s
		JOIN channels c ON c.id = s.channel_id
		JOIN users u ON u.id = s.user_id
		WHERE s.status IN ('active', 'trial')
		  AND s.expiry_notified = false
		  AND s.expires_at IS NOT NULL
		  AND s.expires_at > $1
		  AND s.expires_at <= $2
		ORDER BY s.expires_at
	`, from, to)
	return items, err
}

func (r *PostgresRepository) MarkNotified(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET expiry_notified = true, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
