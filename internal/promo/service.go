package promo

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
)

// Validation failures, one per violated rule. The check order in Validate is
// significant: callers map each error to a distinct user-facing message.
var (
	ErrNotFound       = errors.New("promocode not found")
	ErrInactive       = errors.New("promocode is inactive")
	ErrExpired        = errors.New("promocode is outside its validity window")
	ErrMaxUsesReached = errors.New("promocode max uses reached")
	ErrScopeMismatch  = errors.New("promocode does not apply to this target")
	ErrBelowMinPrice  = errors.New("plan price is below the promocode minimum")
	ErrAlreadyUsed    = errors.New("promocode already used by this user")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Promocode, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Validate(ctx context.Context, code string, userID int64, targetType channel.TargetType, targetID int64, price decimal.Decimal) (*Promocode, error) {
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !p.Active {
		return nil, ErrInactive
	}

	now := time.Now()
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return nil, ErrExpired
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return nil, ErrExpired
	}

	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return nil, ErrMaxUsesReached
	}

	if p.ChannelID != nil && (targetType != channel.TargetChannel || targetID != *p.ChannelID) {
		return nil, ErrScopeMismatch
	}
	if p.PackageID != nil && (targetType != channel.TargetPackage || targetID != *p.PackageID) {
		return nil, ErrScopeMismatch
	}

	if p.MinPrice != nil && price.LessThan(*p.MinPrice) {
		return nil, ErrBelowMinPrice
	}

	if p.OnePerUser {
		used, err := s.repo.HasUsageByUser(ctx, p.ID, userID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrAlreadyUsed
		}
	}

	return p, nil
}

// Discount computes the price reduction a code grants. free_days codes do
// not reduce price: their benefit is bonus duration.
func (s *Service) Discount(p *Promocode, price decimal.Decimal) decimal.Decimal {
	switch p.Kind {
	case KindPercent:
		return price.Mul(p.Value).Div(decimal.NewFromInt(100))
	case KindFixed:
		if p.Value.GreaterThan(price) {
			return price
		}
		return p.Value
	case KindFreeAccess:
		return price
	default:
		return decimal.Zero
	}
}

// Redeem records a usage inside the caller's settlement transaction. A retry
// for the same payment is a no-op, so a redelivered webhook never
// double-increments the counter.
func (s *Service) Redeem(ctx context.Context, tx *sqlx.Tx, promocodeID, userID int64, paymentID *int64, discount decimal.Decimal) error {
	if paymentID != nil {
		exists, err := s.repo.HasUsageForPaymentTx(ctx, tx, promocodeID, *paymentID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	return s.repo.RedeemTx(ctx, tx, promocodeID, userID, paymentID, discount)
}
