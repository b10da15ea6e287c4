package channel

import (
	"time"

	"github.com/shopspring/decimal"
)

type TargetType string

const (
	TargetChannel TargetType = "channel"
	TargetPackage TargetType = "package"
)

type Channel struct {
	ID             int64     `db:"id" json:"id"`
	TelegramChatID int64     `db:"telegram_chat_id" json:"telegram_chat_id"`
	Title          string    `db:"title" json:"title"`
	TrialDays      int       `db:"trial_days" json:"trial_days"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type Package struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Plan is a purchasable duration for a channel or a package.
// DurationDays == 0 means lifetime access.
type Plan struct {
	ID           int64           `db:"id" json:"id"`
	TargetType   TargetType      `db:"target_type" json:"target_type"`
	TargetID     int64           `db:"target_id" json:"target_id"`
	Title        string          `db:"title" json:"title"`
	DurationDays int             `db:"duration_days" json:"duration_days"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Active       bool            `db:"active" json:"active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func (p *Plan) IsLifetime() bool {
	return p.DurationDays == 0
}
