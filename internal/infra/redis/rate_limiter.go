package redis

import (
	"context"
	"strconv"
	"time"

	"dino-video-labeler/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

const labelKeyPrefix = "rate_limit:label:"

// RateLimiter counts label requests per client in clock-aligned windows
// shared by every replica. Each window gets its own counter key, so a
// counter never outlives the window it belongs to.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	count, err := r.client.IncrWithTTL(ctx, windowKey(key, r.now(), window), window)
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

// LabelRequestKey names the counter for one client address.
func LabelRequestKey(client string) string {
	return labelKeyPrefix + client
}

// windowKey suffixes key with the start of the window containing t.
func windowKey(key string, t time.Time, window time.Duration) string {
	w := int64(window / time.Second)
	if w < 1 {
		w = 1
	}
	start := t.Unix() / w * w
	return key + ":" + strconv.FormatInt(start, 10)
}
