package user

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64           `db:"id" json:"id"`
	TelegramID   int64           `db:"telegram_id" json:"telegram_id"`
	Username     string          `db:"username" json:"username"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	TotalSpent   decimal.Decimal `db:"total_spent" json:"total_spent"`
	HasPurchased bool            `db:"has_purchased" json:"has_purchased"`
	ReferrerID   *int64          `db:"referrer_id" json:"referrer_id,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
