package storage

import (
	"context"
	"errors"

	"github.com/a-voskov/delivera/libs/db"
	"github.com/jackc/pgx/v5"
)

// ScheduleRepository persists the local replica of merchant schedule
// configurations, kept current by consuming merchant-service events.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) Get(ctx context.Context, accountID string) ([]byte, bool, error) {
	var config []byte
	err := r.pool.QueryRow(ctx, `
		SELECT config
		FROM merchant_schedules
		WHERE account_id = $1
	`, accountID).Scan(&config)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return config, true, nil
}

func (r *ScheduleRepository) Upsert(ctx context.Context, accountID string, config []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO merchant_schedules (account_id, config)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE
		SET config = EXCLUDED.config,
			updated_at = now()
	`, accountID, config)
	return err
}
