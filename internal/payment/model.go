package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Payment is the local record of one purchase intent. InvoiceID is the
// gateway's identifier, unique among real invoices; 0 means the purchase was
// fully discounted and never touched the gateway. Status leaves pending
// exactly once, into one terminal state.
type Payment struct {
	ID             int64              `db:"id" json:"id"`
	UserID         int64              `db:"user_id" json:"user_id"`
	InvoiceID      int64              `db:"invoice_id" json:"invoice_id"`
	PayURL         string             `db:"pay_url" json:"pay_url"`
	Amount         decimal.Decimal    `db:"amount" json:"amount"`
	OriginalAmount decimal.Decimal    `db:"original_amount" json:"original_amount"`
	Discount       decimal.Decimal    `db:"discount" json:"discount"`
	PromocodeID    *int64             `db:"promocode_id" json:"promocode_id,omitempty"`
	TargetType     channel.TargetType `db:"target_type" json:"target_type"`
	TargetID       int64              `db:"target_id" json:"target_id"`
	PlanID         int64              `db:"plan_id" json:"plan_id"`
	DurationDays   int                `db:"duration_days" json:"duration_days"`
	Status         Status             `db:"status" json:"status"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	PaidAt         *time.Time         `db:"paid_at" json:"paid_at,omitempty"`
	ExpiresAt      *time.Time         `db:"expires_at" json:"expires_at,omitempty"`
}

func (p *Payment) IsTerminal() bool {
	return p.Status != StatusPending
}
