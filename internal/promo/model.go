package promo

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPercent    Kind = "percent"
	KindFixed      Kind = "fixed"
	KindFreeDays   Kind = "free_days"
	KindFreeAccess Kind = "free_access"
)

type Promocode struct {
	ID          int64            `db:"id" json:"id"`
	Code        string           `db:"code" json:"code"`
	Kind        Kind             `db:"kind" json:"kind"`
	Value       decimal.Decimal  `db:"value" json:"value"`
	ChannelID   *int64           `db:"channel_id" json:"channel_id,omitempty"`
	PackageID   *int64           `db:"package_id" json:"package_id,omitempty"`
	MinPrice    *decimal.Decimal `db:"min_price" json:"min_price,omitempty"`
	MaxUses     *int             `db:"max_uses" json:"max_uses,omitempty"`
	CurrentUses int              `db:"current_uses" json:"current_uses"`
	OnePerUser  bool             `db:"one_per_user" json:"one_per_user"`
	ValidFrom   *time.Time       `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil  *time.Time       `db:"valid_until" json:"valid_until,omitempty"`
	Active      bool             `db:"active" json:"active"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// BonusDays is the extra subscription time granted by a free_days code.
func (p *Promocode) BonusDays() int {
	if p.Kind != KindFreeDays {
		return 0
	}
	return int(p.Value.IntPart())
}

type Usage struct {
	ID          int64           `db:"id" json:"id"`
	PromocodeID int64           `db:"promocode_id" json:"promocode_id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	PaymentID   *int64          `db:"payment_id" json:"payment_id,omitempty"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
