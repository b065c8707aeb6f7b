package api

import (
	"context"
	"sync"
	"time"

	"roombook/internal/config"
	"roombook/internal/domain"

	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client inside this process.
type rateLimiter struct {
	limiters sync.Map
	cfg      config.APIRateLimitConfig
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{
		cfg: cfg,
	}
}

func (l *rateLimiter) Allow(key string) bool {
	if l == nil || l.cfg.RPS <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

// writeQuota caps reservation writes per client per minute in a store shared
// by all instances. A store error lets the request through.
type writeQuota struct {
	store domain.RateLimitStore
	limit int
}

func newWriteQuota(store domain.RateLimitStore, cfg config.APIRateLimitConfig) *writeQuota {
	if store == nil || cfg.WritesPerMinute <= 0 {
		return nil
	}
	return &writeQuota{store: store, limit: cfg.WritesPerMinute}
}

func (q *writeQuota) Allow(ctx context.Context, client string) bool {
	if q == nil {
		return true
	}
	allowed, err := q.store.CheckRateLimit(ctx, "writes:"+client, q.limit, time.Minute)
	if err != nil {
		return true
	}
	return allowed
}
