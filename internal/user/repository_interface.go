package user

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	// AddSpendTx accumulates total_spent inside the caller's transaction and
	// flips has_purchased. Returns true when this was the user's first
	// settled purchase.
	AddSpendTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal) (bool, error)
	CreditBalanceTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal) error
}
