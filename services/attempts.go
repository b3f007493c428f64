package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptCounter counts failed confirmations per key inside a window.
type AttemptCounter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewAttemptCounter(client *redis.Client, prefix string, window time.Duration) *AttemptCounter {
	return &AttemptCounter{client: client, prefix: prefix, window: window}
}

// Fail increments the counter and returns the new count.
func (a *AttemptCounter) Fail(ctx context.Context, key string) (int, error) {
	k := fmt.Sprintf("%s:%s", a.prefix, key)
	pipe := a.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, a.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}
	return int(incr.Val()), nil
}

func (a *AttemptCounter) Reset(ctx context.Context, key string) error {
	return a.client.Del(ctx, fmt.Sprintf("%s:%s", a.prefix, key)).Err()
}
