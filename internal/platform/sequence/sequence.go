// Package sequence provides atomic per-date counters used to mint
// appointment numbers. Two backends exist: Redis (INCR on a dated key) and
// Postgres (an upserted counter row). Both hand out each value exactly once,
// so two concurrent bookings on the same day can never share a number.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "appt_seq:"
	// Counters for a given day are useless 48h later; let Redis reap them.
	keyTTL = 48 * time.Hour
)

func dateKey(date time.Time) string {
	return keyPrefix + date.Format("20060102")
}

// RedisAllocator mints per-date sequence numbers from a Redis counter.
type RedisAllocator struct {
	client *redis.Client
}

// NewRedisClient connects to Redis using a redis:// URL and verifies the
// connection with a ping.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisAllocator(client *redis.Client) *RedisAllocator {
	return &RedisAllocator{client: client}
}

// Next returns the next sequence number for the given date, starting at 1.
func (a *RedisAllocator) Next(ctx context.Context, date time.Time) (int64, error) {
	key := dateKey(date)
	n, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		// First allocation for the day sets the expiry.
		if err := a.client.Expire(ctx, key, keyTTL).Err(); err != nil {
			return 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return n, nil
}

// PGAllocator mints per-date sequence numbers from a counter table. The
// upsert increments and returns in a single statement, so concurrent callers
// serialize on the row instead of racing a count query.
type PGAllocator struct {
	pool *pgxpool.Pool
}

func NewPGAllocator(pool *pgxpool.Pool) *PGAllocator {
	return &PGAllocator{pool: pool}
}

// Next returns the next sequence number for the given date, starting at 1.
func (a *PGAllocator) Next(ctx context.Context, date time.Time) (int64, error) {
	var n int64
	err := a.pool.QueryRow(ctx, `
		INSERT INTO appointment_sequence (seq_date, n) VALUES ($1, 1)
		ON CONFLICT (seq_date) DO UPDATE SET n = appointment_sequence.n + 1
		RETURNING n`, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", date.Format("2006-01-02"), err)
	}
	return n, nil
}
