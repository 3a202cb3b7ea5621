package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter implements a fixed-window INCR+EXPIRE counter keyed by
// userId+productId, enforcing spec.md §9's resolution of Open Question 1
// (5 purchase attempts per user per product per 60s window). Grounded on the
// teacher's IncrementUserPurchaseCount, generalized with an EXPIRE so the
// window rolls instead of accumulating forever.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func attemptKey(userID, productID string) string {
	return fmt.Sprintf("attempts:%s:%s", userID, productID)
}

// Allow increments the attempt counter for userID+productID and reports
// whether the caller is still within the configured limit for the current
// window. The window starts on the first attempt and is not reset by
// subsequent ones, per the standard fixed-window counter pattern.
func (l *RateLimiter) Allow(ctx context.Context, userID, productID string) (bool, error) {
	key := attemptKey(userID, productID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}
