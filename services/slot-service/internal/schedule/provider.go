package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/a-voskov/delivera/services/slot-service/internal/availability"
	"github.com/a-voskov/delivera/services/slot-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Provider resolves a merchant's schedule configuration. The second return
// is false when the account has no configuration at all.
type Provider interface {
	Schedule(ctx context.Context, accountID string) (availability.Schedule, bool, error)
}

// CachedProvider reads from a Redis cache in front of the local Postgres
// replica of merchant configurations. Redis failures degrade to direct
// replica reads; they never fail the request.
type CachedProvider struct {
	repo   *storage.ScheduleRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProvider(repo *storage.ScheduleRepository, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProvider{repo: repo, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(accountID string) string {
	return "schedule:" + accountID
}

func (p *CachedProvider) Schedule(ctx context.Context, accountID string) (availability.Schedule, bool, error) {
	if p.rdb != nil {
		raw, err := p.rdb.Get(ctx, cacheKey(accountID)).Bytes()
		switch {
		case err == nil:
			return p.decode(accountID, raw)
		case errors.Is(err, redis.Nil):
			// fall through to the replica
		default:
			p.logger.Warn("schedule cache read failed", "err", err, "account_id", accountID)
		}
	}

	raw, found, err := p.repo.Get(ctx, accountID)
	if err != nil {
		return availability.Schedule{}, false, err
	}
	if !found {
		return availability.Schedule{}, false, nil
	}

	if p.rdb != nil {
		if err := p.rdb.Set(ctx, cacheKey(accountID), raw, p.ttl).Err(); err != nil {
			p.logger.Warn("schedule cache write failed", "err", err, "account_id", accountID)
		}
	}
	return p.decode(accountID, raw)
}

// Invalidate drops the cached entry after a configuration update event.
func (p *CachedProvider) Invalidate(ctx context.Context, accountID string) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Del(ctx, cacheKey(accountID)).Err(); err != nil {
		p.logger.Warn("schedule cache invalidation failed", "err", err, "account_id", accountID)
	}
}

func (p *CachedProvider) decode(accountID string, raw []byte) (availability.Schedule, bool, error) {
	doc, err := Decode(raw)
	if err != nil {
		return availability.Schedule{}, false, err
	}
	s, unknown, err := doc.Schedule()
	if err != nil {
		return availability.Schedule{}, false, err
	}
	for _, name := range unknown {
		p.logger.Warn("ignoring operating hours with unknown day name",
			"account_id", accountID, "day_of_week", name)
	}
	return s, true, nil
}
