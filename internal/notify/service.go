package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
	"github.com/ironsan2kk-pixel/back-sub000/internal/metrics"
)

const (
	queueKey  = "notifications"
	retryKey  = "notifications:retry"
	failedKey = "notifications:failed"

	maxTries   = 3
	retryDelay = 5 * time.Second
)

type Job struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Text       string    `json:"text"`
	Tries      int       `json:"tries"`
	Created    time.Time `json:"created"`
}

// Notifier queues a message for a Telegram user. Delivery is asynchronous
// and best-effort.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

type Service struct {
	redis *redis.Client
	bot   *bot.Bot
	send  func(ctx context.Context, job Job) error
	now   func() time.Time
}

func New(redisAddr string, b *bot.Bot) *Service {
	s := &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		bot: b,
		now: time.Now,
	}
	s.send = s.sendNow
	return s
}

func (s *Service) Notify(ctx context.Context, telegramID int64, text string) error {
	job := Job{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		Text:       text,
		Tries:      0,
		Created:    time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue notification %s for %d: %v", job.ID, telegramID, err)
		return err
	}

	metrics.NotificationsQueuedTotal.Inc()
	logger.Infof("Notification queued: %s to %d", job.ID, telegramID)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification service stopped")
			return
		default:
			s.promoteDueRetries(ctx, s.now())
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.send(ctx, job); err != nil {
		logger.Errorf("Failed to send notification %s to %d: %v", job.ID, job.TelegramID, err)

		if job.Tries < maxTries {
			// Parked in the retry set instead of sleeping here, so one bad
			// recipient never stalls the rest of the queue.
			s.scheduleRetry(ctx, job, s.now().Add(retryDelay))
		} else {
			logger.Errorf("Notification %s failed after %d attempts", job.ID, maxTries)
			s.saveFailed(job, err)
		}
		return
	}

	logger.Infof("Notification %s delivered to %d", job.ID, job.TelegramID)
}

func (s *Service) scheduleRetry(ctx context.Context, job Job, at time.Time) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	err = s.redis.ZAdd(ctx, retryKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: string(data),
	}).Err()
	if err != nil {
		logger.Errorf("Failed to schedule retry for notification %s: %v", job.ID, err)
		return
	}
	logger.Infof("Notification %s scheduled for retry (attempt %d)", job.ID, job.Tries+1)
}

// promoteDueRetries moves retry entries whose time has come back onto the
// main queue.
func (s *Service) promoteDueRetries(ctx context.Context, now time.Time) {
	due, err := s.redis.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}

	for _, data := range due {
		if err := s.redis.ZRem(ctx, retryKey, data).Err(); err != nil {
			continue
		}
		if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
			logger.Errorf("Failed to requeue notification retry: %v", err)
		}
	}
}

func (s *Service) sendNow(ctx context.Context, job Job) error {
	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.bot.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID: job.TelegramID,
		Text:   job.Text,
	})
	return err
}

func (s *Service) saveFailed(job Job, sendErr error) {
	record := map[string]interface{}{
		"job":    job,
		"error":  sendErr.Error(),
		"failed": time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.redis.LPush(context.Background(), failedKey, data).Err(); err != nil {
		logger.Errorf("Failed to park notification %s: %v", job.ID, err)
	}
}

func (s *Service) Close() error {
	return s.redis.Close()
}
