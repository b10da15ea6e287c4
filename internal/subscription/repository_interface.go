package subscription

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Subscription, error)
	ListByUser(ctx context.Context, userID int64) ([]Subscription, error)
	HasUsedTrial(ctx context.Context, userID, channelID int64) (bool, error)

	// GetLiveTx locks the live row for (user, channel) inside the caller's
	// transaction; returns nil when no live subscription exists.
	GetLiveTx(ctx context.Context, tx *sqlx.Tx, userID, channelID int64) (*Subscription, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, userID, channelID int64, status Status, expiresAt *time.Time, paymentID *int64, isTrial bool) (*Subscription, error)
	ExtendTx(ctx context.Context, tx *sqlx.Tx, id int64, expiresAt *time.Time, paymentID *int64) error

	ListExpired(ctx context.Context, now time.Time, limit int) ([]SweepItem, error)
	MarkExpired(ctx context.Context, id int64) error
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]SweepItem, error)
	MarkNotified(ctx context.Context, id int64) error
}
