package channel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrPackageNotFound = errors.New("package not found")
	ErrPlanNotFound    = errors.New("plan not found")
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetChannelByID(ctx context.Context, id int64) (*Channel, error) {
	ch := &Channel{}
	err := r.db.GetContext(ctx, ch, `
		SELECT id, telegram_chat_id, title, trial_days, active, created_at
		FROM channels
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (r *PostgresRepository) GetPackageByID(ctx context.Context, id int64) (*Package, error) {
	p := &Package{}
	err := r.db.GetContext(ctx, p, `
		SELECT id, title, active, created_at
		FROM packages
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) GetPlanByID(ctx context.Context, id int64) (*Plan, error) {
	plan := &Plan{}
	err := r.db.GetContext(ctx, plan, `
		SELECT id, target_type, target_id, title, duration_days, price, active, created_at
		FROM plans
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *PostgresRepository) ResolveChannels(ctx context.Context, targetType TargetType, targetID int64) ([]Channel, error) {
	switch targetType {
	case TargetChannel:
		ch, err := r.GetChannelByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		return []Channel{*ch}, nil

	case TargetPackage:
		channels := []Channel{}
		err := r.db.SelectContext(ctx, &channels, `
			SELECT c.id, c.telegram_chat_id, c.title, c.trial_days, c.active, c.created_at
			FROM channels c
			JOIN package_channels pc ON pc.channel_id = c.id
			WHERE pc.package_id = $1 AND c.active = true
			ORDER BY c.id
		`, targetID)
		if err != nil {
			return nil, err
		}
		if len(channels) == 0 {
			return nil, ErrPackageNotFound
		}
		return channels, nil

	default:
		return nil, fmt.Errorf("unknown target type %q", targetType)
	}
}
