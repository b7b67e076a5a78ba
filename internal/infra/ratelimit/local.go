// Package ratelimit holds the in-process limiter used when no Redis is configured.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"dino-video-labeler/internal/domain/ports/adapter"

	"golang.org/x/time/rate"
)

var _ adapter.RateLimiter = (*Local)(nil)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local is a per-key token bucket refilled at limit/window with a burst of
// limit. Idle keys are evicted after idleTTL.
type Local struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	idleTTL  time.Duration
	now      func() time.Time
}

func NewLocal(idleTTL time.Duration) *Local {
	if idleTTL <= 0 {
		idleTTL = 3 * time.Minute
	}
	return &Local{visitors: make(map[string]*visitor), idleTTL: idleTTL, now: time.Now}
}

func (l *Local) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if limit <= 0 {
		return true, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

// Sweep drops visitors idle longer than idleTTL. Run it from a ticker.
func (l *Local) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (l *Local) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
