package storage

import (
	"context"
	"errors"

	"github.com/a-voskov/delivera/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the source of truth for merchant scheduling policy.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

type Profile struct {
	AccountID          string
	Name               string
	Timezone           string
	AllowSameDay       bool
	MinLeadTimeMinutes int
	MaxSchedulingDays  int
}

// Hour is one weekday's operating window. Times are stored as minutes
// since midnight; -1 means no time recorded for the day.
type Hour struct {
	Weekday     int // 0=Sunday … 6=Saturday
	IsOpen      bool
	OpenMinute  int
	CloseMinute int
}

func (r *Repository) GetProfile(ctx context.Context, accountID string) (Profile, bool, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, name, timezone, allow_same_day, min_lead_time_minutes, max_scheduling_days
		FROM merchant_profiles
		WHERE account_id = $1
	`, accountID).Scan(&p.AccountID, &p.Name, &p.Timezone, &p.AllowSameDay, &p.MinLeadTimeMinutes, &p.MaxSchedulingDays)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, err
	}
	return p, true, nil
}

func (r *Repository) ListHours(ctx context.Context, accountID string) ([]Hour, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_open, COALESCE(open_minute, -1), COALESCE(close_minute, -1)
		FROM merchant_operating_hours
		WHERE account_id = $1
		ORDER BY weekday
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []Hour
	for rows.Next() {
		var h Hour
		if err := rows.Scan(&h.Weekday, &h.IsOpen, &h.OpenMinute, &h.CloseMinute); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// ReplaceSchedule overwrites the profile policy fields and the full weekly
// hours set in one transaction, alongside the caller's outbox write.
func (r *Repository) ReplaceSchedule(ctx context.Context, tx pgx.Tx, p Profile, hours []Hour) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO merchant_profiles
			(account_id, name, timezone, allow_same_day, min_lead_time_minutes, max_scheduling_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			allow_same_day = EXCLUDED.allow_same_day,
			min_lead_time_minutes = EXCLUDED.min_lead_time_minutes,
			max_scheduling_days = EXCLUDED.max_scheduling_days,
			updated_at = now()
	`, p.AccountID, p.Name, p.Timezone, p.AllowSameDay, p.MinLeadTimeMinutes, p.MaxSchedulingDays)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM merchant_operating_hours WHERE account_id = $1
	`, p.AccountID); err != nil {
		return err
	}

	for _, h := range hours {
		var openMin, closeMin *int
		if h.OpenMinute >= 0 {
			openMin = &h.OpenMinute
		}
		if h.CloseMinute >= 0 {
			closeMin = &h.CloseMinute
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO merchant_operating_hours (id, account_id, weekday, is_open, open_minute, close_minute)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), p.AccountID, h.Weekday, h.IsOpen, openMin, closeMin); err != nil {
			return err
		}
	}
	return nil
}
