package adapter

import (
	"context"
	"time"
)

// RateLimiter decides whether key may perform one more action in window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
