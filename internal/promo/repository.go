package promo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrMaxUsesExceeded = errors.New("promocode max uses exceeded")

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Promocode, error) {
	p := &Promocode{}
	err := r.db.GetContext(ctx, p, `
		SELECT id, code, kind, value, channel_id, package_id, min_price,
		       max_uses, current_uses, one_per_user, valid_from, valid_until,
		       active, created_at
		FROM promocodes
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Promocode, error) {
	p := &Promocode{}
	err := r.db.GetContext(ctx, p, `
		SELECT id, code, kind, value, channel_id, package_id, min_price,
		       max_uses, current_uses, one_per_user, valid_from, valid_until,
		       active, created_at
		FROM promocodes
		WHERE LOWER(code) = LOWER($1)
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) HasUsageByUser(ctx context.Context, promocodeID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM promocode_usages
			WHERE promocode_id = $1 AND user_id = $2
		)
	`, promocodeID, userID)
	return exists, err
}

func (r *PostgresRepository) HasUsageForPaymentTx(ctx context.Context, tx *sqlx.Tx, promocodeID, paymentID int64) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM promocode_usages
			WHERE promocode_id = $1 AND payment_id = $2
		)
	`, promocodeID, paymentID)
	return exists, err
}

func (r *PostgresRepository) RedeemTx(ctx context.Context, tx *sqlx.Tx, promocodeID, userID int64, paymentID *int64, discount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE promocodes
		SET current_uses = current_uses + 1
		WHERE id = $1
		  AND (max_uses IS NULL OR current_uses < max_uses)
	`, promocodeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMaxUsesExceeded
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO promocode_usages (promocode_id, user_id, payment_id, discount)
		VALUES ($1, $2, $3, $4)
	`, promocodeID, userID, paymentID, discount)
	return err
}
