package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
	"github.com/ironsan2kk-pixel/back-sub000/internal/membership"
	"github.com/ironsan2kk-pixel/back-sub000/internal/metrics"
	"github.com/ironsan2kk-pixel/back-sub000/internal/notify"
	"github.com/ironsan2kk-pixel/back-sub000/internal/subscription"
)

// PaymentExpirer is the sweeper's hook into the payment domain: flipping
// stale pending payments is part of the same periodic job.
type PaymentExpirer interface {
	ExpireStalePending(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper is the periodic job that revokes lapsed access and emits advance
// expiry warnings. It runs independently of request traffic and stops
// between rows on cancellation, never mid-revoke.
type Sweeper struct {
	subs     subscription.Repository
	payments PaymentExpirer
	members  membership.Client
	notifier notify.Notifier
	interval time.Duration
	leadDays []int
}

func New(
	subs subscription.Repository,
	payments PaymentExpirer,
	members membership.Client,
	notifier notify.Notifier,
	interval time.Duration,
	leadDays []int,
) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if len(leadDays) == 0 {
		leadDays = []int{7, 3, 1}
	}
	return &Sweeper{
		subs:     subs,
		payments: payments,
		members:  members,
		notifier: notifier,
		interval: interval,
		leadDays: leadDays,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	logger.Infof("Sweeper started (interval %s, lead days %v)", s.interval, s.leadDays)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one sweep synchronously: the expire pass, the warning
// pass, and the stale-payment pass. Row-level failures are isolated; the
// affected row is retried on the next sweep.
func (s *Sweeper) RunOnce(ctx context.Context) {
	now := time.Now()
	s.expirePass(ctx, now)
	s.warnPass(ctx, now)
	s.expirePayments(ctx, now)
}

func (s *Sweeper) expirePass(ctx context.Context, now time.Time) {
	items, err := s.subs.ListExpired(ctx, now, 500)
	if err != nil {
		logger.Errorf("Sweep: listing expired subscriptions failed: %v", err)
		return
	}

	for i := range items {
		if ctx.Err() != nil {
			return
		}
		item := &items[i]

		// Revoke before marking: a crash here leaves the row selectable for
		// the next sweep instead of losing the expire action.
		if err := s.members.RevokeAccess(ctx, item.ChannelTelegramID, item.UserTelegramID); err != nil {
			logger.Errorf("Sweep: revoke failed for subscription %d (channel %d): %v", item.ID, item.ChannelID, err)
			continue
		}

		if err := s.subs.MarkExpired(ctx, item.ID); err != nil {
			logger.Errorf("Sweep: marking subscription %d expired failed: %v", item.ID, err)
			continue
		}

		metrics.SweepExpiredTotal.Inc()
		if err := s.notifier.Notify(ctx, item.UserTelegramID,
			fmt.Sprintf("Your access to %s has ended. Renew any time to get back in.", item.ChannelTitle)); err != nil {
			logger.Warnf("Sweep: expiry notification failed for %d: %v", item.UserTelegramID, err)
		}
	}
}

func (s *Sweeper) warnPass(ctx context.Context, now time.Time) {
	for _, days := range s.leadDays {
		if ctx.Err() != nil {
			return
		}

		from := now.AddDate(0, 0, days-1)
		to := now.AddDate(0, 0, days)
		items, err := s.subs.ListExpiringBetween(ctx, from, to)
		if err != nil {
			logger.Errorf("Sweep: listing subscriptions expiring in %dd failed: %v", days, err)
			continue
		}

		for i := range items {
			if ctx.Err() != nil {
				return
			}
			item := &items[i]

			text := fmt.Sprintf("Your access to %s expires in %d day(s). Renew to keep it.", item.ChannelTitle, days)
			if days == 1 {
				text = fmt.Sprintf("Your access to %s expires tomorrow. Renew to keep it.", item.ChannelTitle)
			}
			if err := s.notifier.Notify(ctx, item.UserTelegramID, text); err != nil {
				logger.Warnf("Sweep: warning notification failed for %d: %v", item.UserTelegramID, err)
				continue
			}

			// Set only after a successful queue push, so an undelivered
			// warning is retried on the next sweep.
			if err := s.subs.MarkNotified(ctx, item.ID); err != nil {
				logger.Errorf("Sweep: marking subscription %d notified failed: %v", item.ID, err)
				continue
			}
			metrics.SweepWarningsTotal.Inc()
		}
	}
}

func (s *Sweeper) expirePayments(ctx context.Context, now time.Time) {
	n, err := s.payments.ExpireStalePending(ctx, now)
	if err != nil {
		logger.Errorf("Sweep: expiring stale pending payments failed: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("Sweep: expired %d stale pending payment(s)", n)
	}
}
