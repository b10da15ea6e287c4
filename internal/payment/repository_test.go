package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "invoice_id", "pay_url", "amount", "original_amount",
		"discount", "promocode_id", "target_type", "target_id", "plan_id",
		"duration_days", "status", "created_at", "paid_at", "expires_at",
	})
}

func TestMarkPaidTx_Wins(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payments").
		WithArgs(int64(1)).
		WillReturnRows(paymentRows().AddRow(
			int64(1), int64(42), int64(101), "https://t.me/pay", "9.99", "9.99",
			"0", nil, "channel", int64(7), int64(12),
			30, "paid", now, now, nil,
		))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	p, won, err := repo.MarkPaidTx(context.Background(), tx, 1)
	require.NoError(t, err)
	assert.True(t, won)
	assert.Equal(t, StatusPaid, p.Status)
	assert.Equal(t, int64(1), p.ID)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidTx_LostRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payments").
		WithArgs(int64(1)).
		WillReturnRows(paymentRows())
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	p, won, err := repo.MarkPaidTx(context.Background(), tx, 1)
	require.NoError(t, err)
	assert.False(t, won)
	assert.Nil(t, p)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByInvoiceID_ZeroIsNeverAKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	// Gateway-less payments all carry invoice_id 0; looking one up by that
	// marker must not hand back an arbitrary row.
	_, err := repo.GetByInvoiceID(context.Background(), 0)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCancelled_NotPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec("UPDATE payments").
		WithArgs(int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCancelled(context.Background(), 101)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestExpireStalePending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	now := time.Now()
	mock.ExpectExec("UPDATE payments").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireStalePending(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
