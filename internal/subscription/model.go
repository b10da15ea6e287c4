package subscription

import "time"

type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Subscription grants one user timed access to one channel. ExpiresAt == nil
// means lifetime access, which the sweeper never touches.
type Subscription struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	ChannelID      int64      `db:"channel_id" json:"channel_id"`
	Status         Status     `db:"status" json:"status"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	PaymentID      *int64     `db:"payment_id" json:"payment_id,omitempty"`
	IsTrial        bool       `db:"is_trial" json:"is_trial"`
	ExpiryNotified bool       `db:"expiry_notified" json:"expiry_notified"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (s *Subscription) IsLive(now time.Time) bool {
	if s.Status != StatusActive && s.Status != StatusTrial {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

func (s *Subscription) IsLifetime() bool {
	return s.ExpiresAt == nil
}

// SweepItem is a subscription joined with the identifiers the sweeper needs
// to revoke access and notify the user.
type SweepItem struct {
	Subscription
	ChannelTelegramID int64  `db:"channel_telegram_id" json:"channel_telegram_id"`
	ChannelTitle      string `db:"channel_title" json:"channel_title"`
	UserTelegramID    int64  `db:"user_telegram_id" json:"user_telegram_id"`
}
