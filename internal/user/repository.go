package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrUserNotFound = errors.New("user not found")

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	err := r.db.GetContext(ctx, u, `
		SELECT id, telegram_id, username, balance, total_spent, has_purchased, referrer_id, created_at
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	u := &User{}
	err := r.db.GetContext(ctx, u, `
		SELECT id, telegram_id, username, balance, total_spent, has_purchased, referrer_id, created_at
		FROM users
		WHERE telegram_id = $1
	`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) AddSpendTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal) (bool, error) {
	// Read the flag under a row lock first: has_purchased is an explicit
	// marker, never inferred from spend arithmetic.
	var hadPurchased bool
	err := tx.QueryRowxContext(ctx, `
		SELECT has_purchased FROM users WHERE id = $1 FOR UPDATE
	`, userID).Scan(&hadPurchased)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET total_spent = total_spent + $1,
		    has_purchased = true
		WHERE id = $2
	`, amount, userID)
	if err != nil {
		return false, err
	}

	return !hadPurchased, nil
}

func (r *PostgresRepository) CreditBalanceTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2
	`, amount, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
