package promo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Promocode, error)
	GetByCode(ctx context.Context, code string) (*Promocode, error)
	HasUsageByUser(ctx context.Context, promocodeID, userID int64) (bool, error)
	HasUsageForPaymentTx(ctx context.Context, tx *sqlx.Tx, promocodeID, paymentID int64) (bool, error)
	// RedeemTx inserts the usage row and increments current_uses as one unit
	// inside the caller's transaction.
	RedeemTx(ctx context.Context, tx *sqlx.Tx, promocodeID, userID int64, paymentID *int64, discount decimal.Decimal) error
}
