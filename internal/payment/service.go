package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
	"github.com/ironsan2kk-pixel/back-sub000/internal/cryptopay"
	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
	"github.com/ironsan2kk-pixel/back-sub000/internal/membership"
	"github.com/ironsan2kk-pixel/back-sub000/internal/metrics"
	"github.com/ironsan2kk-pixel/back-sub000/internal/notify"
	"github.com/ironsan2kk-pixel/back-sub000/internal/promo"
	"github.com/ironsan2kk-pixel/back-sub000/internal/subscription"
	"github.com/ironsan2kk-pixel/back-sub000/internal/user"
)

var (
	ErrPlanTargetMismatch = errors.New("plan does not belong to the requested target")
	ErrPlanInactive       = errors.New("plan is not purchasable")
	ErrNotPending         = errors.New("payment is not pending")
	ErrInvoiceUnknown     = errors.New("gateway does not know this invoice")
)

// Gateway is the slice of the Crypto Pay client the orchestrator uses.
type Gateway interface {
	CreateInvoice(ctx context.Context, req cryptopay.CreateInvoiceRequest) (*cryptopay.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*cryptopay.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) (bool, error)
}

// PartialGrantError reports channels whose invite grant failed after a
// successful settlement. The settlement itself stands: money has moved and
// the subscription rows are the source of truth for re-granting.
type PartialGrantError struct {
	ChannelIDs []int64
}

func (e *PartialGrantError) Error() string {
	return fmt.Sprintf("invite grant failed for %d channel(s)", len(e.ChannelIDs))
}

type Invite struct {
	ChannelID    int64  `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	Link         string `json:"link"`
}

// SettlementResult is what both the webhook path and the user-poll path get
// back. Settled is true only for the call that performed the transition;
// redeliveries and race losers observe the stored state.
type SettlementResult struct {
	Payment  *Payment           `json:"payment"`
	Settled  bool               `json:"settled"`
	Invites  []Invite           `json:"invites,omitempty"`
	GrantErr *PartialGrantError `json:"-"`
}

type CreateInvoiceInput struct {
	UserID     int64
	TargetType channel.TargetType
	TargetID   int64
	PlanID     int64
	PromoCode  string
}

type Config struct {
	Asset           string
	InvoiceTTL      time.Duration
	ReferralPercent int
}

type Service struct {
	db       *sqlx.DB
	repo     Repository
	users    user.Repository
	channels channel.Repository
	promos   *promo.Service
	subs     *subscription.Service
	gateway  Gateway
	members  membership.Client
	notifier notify.Notifier
	cfg      Config
}

func NewService(
	db *sqlx.DB,
	repo Repository,
	users user.Repository,
	channels channel.Repository,
	promos *promo.Service,
	subs *subscription.Service,
	gateway Gateway,
	members membership.Client,
	notifier notify.Notifier,
	cfg Config,
) *Service {
	if cfg.InvoiceTTL <= 0 {
		cfg.InvoiceTTL = time.Hour
	}
	return &Service{
		db:       db,
		repo:     repo,
		users:    users,
		channels: channels,
		promos:   promos,
		subs:     subs,
		gateway:  gateway,
		members:  members,
		notifier: notifier,
		cfg:      cfg,
	}
}

// CreateInvoice turns a purchase intent into a gateway invoice plus a local
// pending Payment. The gateway call comes first: a row is only persisted for
// an invoice that exists, so a gateway failure leaves no orphan. A total of
// zero skips the gateway entirely and settles on the spot.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Payment, error) {
	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	plan, err := s.channels.GetPlanByID(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.TargetType != in.TargetType || plan.TargetID != in.TargetID {
		return nil, ErrPlanTargetMismatch
	}
	if !plan.Active {
		return nil, ErrPlanInactive
	}

	price := plan.Price
	discount := decimal.Zero
	var promocodeID *int64

	if in.PromoCode != "" {
		// An invalid code is a hard failure: it is never silently
		// reinterpreted as "no discount".
		p, err := s.promos.Validate(ctx, in.PromoCode, in.UserID, in.TargetType, in.TargetID, price)
		if err != nil {
			return nil, err
		}
		discount = s.promos.Discount(p, price)
		promocodeID = &p.ID
	}

	final := price.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	expiresAt := time.Now().Add(s.cfg.InvoiceTTL)

	// A fully discounted purchase never reaches the gateway, which rejects
	// zero-amount invoices. The payment settles right away.
	if final.IsZero() {
		created, err := s.repo.Create(ctx, &Payment{
			UserID:         u.ID,
			Amount:         final,
			OriginalAmount: price,
			Discount:       discount,
			PromocodeID:    promocodeID,
			TargetType:     in.TargetType,
			TargetID:       in.TargetID,
			PlanID:         plan.ID,
			DurationDays:   plan.DurationDays,
			ExpiresAt:      &expiresAt,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Free purchase %d for user %d (%s %d, plan %d), settling without invoice",
			created.ID, u.ID, in.TargetType, in.TargetID, plan.ID)
		res, err := s.finalize(ctx, created)
		if err != nil {
			return nil, err
		}
		return res.Payment, nil
	}

	payload, err := EncodePayload(u.ID, in.TargetType, in.TargetID, plan.ID, promocodeID)
	if err != nil {
		return nil, err
	}

	inv, err := s.gateway.CreateInvoice(ctx, cryptopay.CreateInvoiceRequest{
		Asset:       s.cfg.Asset,
		Amount:      final.StringFixed(2),
		Description: invoiceDescription(plan),
		Payload:     payload,
		ExpiresIn:   int(s.cfg.InvoiceTTL.Seconds()),
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Payment{
		UserID:         u.ID,
		InvoiceID:      inv.InvoiceID,
		PayURL:         inv.URL(),
		Amount:         final,
		OriginalAmount: price,
		Discount:       discount,
		PromocodeID:    promocodeID,
		TargetType:     in.TargetType,
		TargetID:       in.TargetID,
		PlanID:         plan.ID,
		DurationDays:   plan.DurationDays,
		ExpiresAt:      &expiresAt,
	})
	if err != nil {
		return nil, err
	}

	metrics.InvoicesCreatedTotal.WithLabelValues(string(in.TargetType)).Inc()
	logger.Infof("Invoice %d created for user %d (%s %d, plan %d, amount %s)",
		inv.InvoiceID, u.ID, in.TargetType, in.TargetID, plan.ID, final.StringFixed(2))
	return created, nil
}

// Settle reconciles one gateway invoice into local state. It is safe under
// webhook redelivery and concurrent user polling: whoever observes pending
// performs the transition, everyone else gets the winner's outcome.
func (s *Service) Settle(ctx context.Context, invoiceID int64) (*SettlementResult, error) {
	p, err := s.repo.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if p.IsTerminal() {
		metrics.RecordSettlement("duplicate")
		return &SettlementResult{Payment: p, Settled: false}, nil
	}

	inv, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvoiceUnknown
	}

	switch inv.Status {
	case cryptopay.StatusExpired:
		if err := s.repo.MarkExpired(ctx, invoiceID); err != nil {
			return nil, err
		}
		p.Status = StatusExpired
		metrics.RecordSettlement("expired")
		return &SettlementResult{Payment: p, Settled: false}, nil
	case cryptopay.StatusPaid:
		// fall through to settlement
	default:
		metrics.RecordSettlement("still_active")
		return &SettlementResult{Payment: p, Settled: false}, nil
	}

	return s.finalize(ctx, p)
}

// finalize moves one pending payment to paid and applies everything the money
// bought: promo redemption, spend accounting, the referral bonus and the
// subscription rows, all in one transaction, then invites after commit.
func (s *Service) finalize(ctx context.Context, p *Payment) (*SettlementResult, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	channels, err := s.channels.ResolveChannels(ctx, p.TargetType, p.TargetID)
	if err != nil {
		return nil, err
	}

	durationDays := p.DurationDays
	var promoRec *promo.Promocode
	if p.PromocodeID != nil {
		promoRec, err = s.promos.Get(ctx, *p.PromocodeID)
		if err != nil {
			return nil, err
		}
		if durationDays > 0 {
			durationDays += promoRec.BonusDays()
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	paid, won, err := s.repo.MarkPaidTx(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		// ConcurrencyConflict resolves to the winner's result, not an error.
		existing, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		metrics.RecordSettlement("lost_race")
		return &SettlementResult{Payment: existing, Settled: false}, nil
	}

	if promoRec != nil {
		err := s.promos.Redeem(ctx, tx, promoRec.ID, u.ID, &paid.ID, paid.Discount)
		if errors.Is(err, promo.ErrMaxUsesExceeded) {
			// The cap filled up between invoice creation and payment. The
			// money has moved, so the discount is honored; the counter just
			// stops gating future validations.
			logger.Warnf("Settlement %d: promo %d cap reached post-purchase", paid.ID, promoRec.ID)
		} else if err != nil {
			return nil, err
		} else {
			metrics.PromoRedemptionsTotal.Inc()
		}
	}

	firstPurchase, err := s.users.AddSpendTx(ctx, tx, u.ID, paid.Amount)
	if err != nil {
		return nil, err
	}
	if firstPurchase && u.ReferrerID != nil && s.cfg.ReferralPercent > 0 {
		bonus := paid.Amount.Mul(decimal.NewFromInt(int64(s.cfg.ReferralPercent))).Div(decimal.NewFromInt(100))
		if bonus.IsPositive() {
			if err := s.users.CreditBalanceTx(ctx, tx, *u.ReferrerID, bonus); err != nil {
				return nil, err
			}
		}
	}

	subs := make([]*subscription.Subscription, 0, len(channels))
	for _, ch := range channels {
		sub, err := s.subs.CreateOrExtend(ctx, tx, u.ID, ch.ID, durationDays, &paid.ID, false)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result := &SettlementResult{Payment: paid, Settled: true}

	// Grants happen after commit: a failed invite must not roll back a paid,
	// subscribed state. Failures are reported and re-grantable on demand.
	var failed []int64
	for i, ch := range channels {
		link, err := s.members.GrantAccess(ctx, ch.TelegramChatID, u.TelegramID, subs[i].ExpiresAt)
		if err != nil {
			logger.Errorf("Settlement %d: grant failed for channel %d: %v", paid.ID, ch.ID, err)
			failed = append(failed, ch.ID)
			continue
		}
		result.Invites = append(result.Invites, Invite{
			ChannelID:    ch.ID,
			ChannelTitle: ch.Title,
			Link:         link,
		})
	}
	if len(failed) > 0 {
		result.GrantErr = &PartialGrantError{ChannelIDs: failed}
	}

	s.notifyReceipt(ctx, u.TelegramID, result)

	metrics.RecordSettlement("settled")
	logger.Infof("Payment %d settled (invoice %d): %d subscription(s), %d invite(s)",
		paid.ID, paid.InvoiceID, len(subs), len(result.Invites))
	return result, nil
}

// Cancel aborts a still-pending payment: the gateway invoice is deleted and
// the local row moves to cancelled.
func (s *Service) Cancel(ctx context.Context, invoiceID int64) error {
	p, err := s.repo.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if p.IsTerminal() {
		return ErrNotPending
	}

	if _, err := s.gateway.DeleteInvoice(ctx, invoiceID); err != nil {
		return err
	}
	return s.repo.MarkCancelled(ctx, invoiceID)
}

// ExpireStalePending is the sweeper's timeout pass over payments.
func (s *Service) ExpireStalePending(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.ExpireStalePending(ctx, now)
}

func (s *Service) notifyReceipt(ctx context.Context, telegramID int64, result *SettlementResult) {
	var b strings.Builder
	b.WriteString("Payment received. Your access is ready:\n")
	for _, inv := range result.Invites {
		fmt.Fprintf(&b, "%s: %s\n", inv.ChannelTitle, inv.Link)
	}
	if result.GrantErr != nil {
		b.WriteString("Some invite links could not be created yet; they will be re-issued shortly.")
	}
	if err := s.notifier.Notify(ctx, telegramID, b.String()); err != nil {
		logger.Warnf("Receipt notification failed for %d: %v", telegramID, err)
	}
}

func invoiceDescription(plan *channel.Plan) string {
	if plan.DurationDays == 0 {
		return fmt.Sprintf("%s (lifetime access)", plan.Title)
	}
	return fmt.Sprintf("%s (%d days)", plan.Title, plan.DurationDays)
}
