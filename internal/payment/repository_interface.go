package payment

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByInvoiceID(ctx context.Context, invoiceID int64) (*Payment, error)

	// MarkPaidTx performs the atomic check-and-transition that makes
	// settlement at-most-once: the conditional update only succeeds while the
	// row is still pending. The bool reports whether this call won. Keyed by
	// the payment's own id so gateway-less payments transition the same way.
	MarkPaidTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Payment, bool, error)

	MarkExpired(ctx context.Context, invoiceID int64) error
	MarkCancelled(ctx context.Context, invoiceID int64) error

	// ExpireStalePending flips pending payments whose gateway invoice TTL has
	// passed; the sweeper's timeout pass.
	ExpireStalePending(ctx context.Context, now time.Time) (int64, error)
}
