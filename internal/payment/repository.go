package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrPaymentNotFound = errors.New("payment not found")

const columns = `id, user_id, invoice_id, pay_url, amount, original_amount, discount, promocode_id, target_type, target_id, plan_id, duration_days, status, created_at, paid_at, expires_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	created := &Payment{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payments (user_id, invoice_id, pay_url, amount, original_amount, discount,
		                      promocode_id, target_type, target_id, plan_id, duration_days,
		                      status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', $12)
		RETURNING `+columns+`
	`, p.UserID, p.InvoiceID, p.PayURL, p.Amount, p.OriginalAmount, p.Discount,
		p.PromocodeID, p.TargetType, p.TargetID, p.PlanID, p.DurationDays, p.ExpiresAt,
	).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	p := &Payment{}
	err := r.db.GetContext(ctx, p, `
		SELECT `+columns+` FROM payments WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) GetByInvoiceID(ctx context.Context, invoiceID int64) (*Payment, error) {
	// 0 is the "no gateway invoice" marker, never a lookup key.
	if invoiceID == 0 {
		return nil, ErrPaymentNotFound
	}
	p := &Payment{}
	err := r.db.GetContext(ctx, p, `
		SELECT `+columns+` FROM payments WHERE invoice_id = $1
	`, invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) MarkPaidTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Payment, bool, error) {
	p := &Payment{}
	err := tx.QueryRowxContext(ctx, `
		UPDATE payments
		SET status = 'paid', paid_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+columns+`
	`, id).StructScan(p)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race: somebody else already moved the row out of pending.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (r *PostgresRepository) MarkExpired(ctx context.Context, invoiceID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'expired'
		WHERE invoice_id = $1 AND status = 'pending'
	`, invoiceID)
	return err
}

func (r *PostgresRepository) MarkCancelled(ctx context.Context, invoiceID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'cancelled'
		WHERE invoice_id = $1 AND status = 'pending'
	`, invoiceID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresRepository) ExpireStalePending(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'expired'
		WHERE status = 'pending'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
