package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Tracker counts chat turns per user per day in Redis. A nil client makes
// every method a no-op so local setups without Redis still work.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{
		rdb: rdb,
		ttl: 48 * time.Hour, // keep yesterday around for reporting
	}
}

func dailyKey(userId uuid.UUID, day time.Time) string {
	return fmt.Sprintf("usage:chat_turns:%s:%s", userId.String(), day.UTC().Format("2006-01-02"))
}

// RecordTurn increments today's turn counter and returns the new count.
func (t *Tracker) RecordTurn(ctx context.Context, userId uuid.UUID) (int64, error) {
	if t.rdb == nil {
		return 0, nil
	}

	key := dailyKey(userId, time.Now())
	count, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment usage counter: %w", err)
	}

	if count == 1 {
		if err := t.rdb.Expire(ctx, key, t.ttl).Err(); err != nil {
			return count, fmt.Errorf("set usage counter ttl: %w", err)
		}
	}

	return count, nil
}

// TurnsToday reads today's counter without modifying it.
func (t *Tracker) TurnsToday(ctx context.Context, userId uuid.UUID) (int64, error) {
	if t.rdb == nil {
		return 0, nil
	}

	count, err := t.rdb.Get(ctx, dailyKey(userId, time.Now())).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage counter: %w", err)
	}
	return count, nil
}
