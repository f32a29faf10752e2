package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/logging"
)

const breakerDuration = 30 * time.Second

// Fallback consults primary and switches to secondary for breakerDuration
// whenever primary fails.
type Fallback struct {
	primary   Limiter
	secondary Limiter
	logger    logging.Logger

	mu           sync.Mutex
	breakerUntil time.Time
}

func NewFallback(primary, secondary Limiter, logger logging.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	f.mu.Lock()
	open := now.Before(f.breakerUntil)
	f.mu.Unlock()

	if !open {
		res, err := f.primary.Allow(ctx, key, limit, now)
		if err == nil {
			return res, nil
		}
		f.mu.Lock()
		f.breakerUntil = now.Add(breakerDuration)
		f.mu.Unlock()
		f.logger.Warn(ctx, "primary rate limiter failed, using fallback", "error", err)
	}

	return f.secondary.Allow(ctx, key, limit, now)
}
