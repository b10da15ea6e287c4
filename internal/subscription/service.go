package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrTrialNotAllowed rejects a trial for a pair that already holds a live
// subscription. Folding trial days into paid time would never record the
// trial as consumed, so the endpoint could be milked forever.
var ErrTrialNotAllowed = errors.New("trial is not available while a subscription is live")

// Service owns the state machine and time arithmetic of a subscription's
// active window.
type Service struct {
	db   *sqlx.DB
	repo Repository
}

func NewService(db *sqlx.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// CreateOrExtend applies one settled purchase (or grant) to the (user,
// channel) pair inside the caller's transaction.
//
// No live subscription: a new one starts now, for durationDays (0 means
// lifetime). A live one is extended from max(expires_at, now) so time lost
// past an expiry is never compounded into paid time. A lifetime subscription
// is already maximal: extension is a no-op. Extension resets the status to
// active and re-arms the expiry warning. A trial never extends a live
// subscription: that fails with ErrTrialNotAllowed.
func (s *Service) CreateOrExtend(ctx context.Context, tx *sqlx.Tx, userID, channelID int64, durationDays int, paymentID *int64, isTrial bool) (*Subscription, error) {
	now := time.Now()

	live, err := s.repo.GetLiveTx(ctx, tx, userID, channelID)
	if err != nil {
		return nil, err
	}

	if live == nil {
		status := StatusActive
		if isTrial {
			status = StatusTrial
		}
		var expiresAt *time.Time
		if durationDays > 0 {
			t := now.AddDate(0, 0, durationDays)
			expiresAt = &t
		}
		return s.repo.CreateTx(ctx, tx, userID, channelID, status, expiresAt, paymentID, isTrial)
	}

	if isTrial {
		return nil, ErrTrialNotAllowed
	}

	if live.IsLifetime() {
		return live, nil
	}

	var newExpires *time.Time
	if durationDays > 0 {
		base := now
		if live.ExpiresAt.After(now) {
			base = *live.ExpiresAt
		}
		t := base.AddDate(0, 0, durationDays)
		newExpires = &t
	}
	// durationDays == 0 upgrades the live subscription to lifetime.

	if err := s.repo.ExtendTx(ctx, tx, live.ID, newExpires, paymentID); err != nil {
		return nil, err
	}

	live.ExpiresAt = newExpires
	live.Status = StatusActive
	live.ExpiryNotified = false
	if paymentID != nil {
		live.PaymentID = paymentID
	}
	return live, nil
}

// Grant creates or extends a subscription outside the payment flow (manual
// admin grants and trials).
func (s *Service) Grant(ctx context.Context, userID, channelID int64, durationDays int, isTrial bool) (*Subscription, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := s.CreateOrExtend(ctx, tx, userID, channelID, durationDays, nil, isTrial)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sub, nil
}

// HasUsedTrial reports whether the pair ever consumed a trial, regardless of
// the trial subscription's current status.
func (s *Service) HasUsedTrial(ctx context.Context, userID, channelID int64) (bool, error) {
	return s.repo.HasUsedTrial(ctx, userID, channelID)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]Subscription, error) {
	return s.repo.ListByUser(ctx, userID)
}
