// Package ratelimit provides fixed-window limiters guarding the public
// verification and signing-bundle routes against brute-force enumeration of
// verification codes and tokens.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"firma/internal/domain"
)

const defaultMaxKeys = 10000

type window struct {
	hits  int
	endAt time.Time
}

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
	maxKeys int
}

// NewMemory returns an in-process fixed-window limiter. maxKeys bounds the
// number of live windows; expired windows are collected when the bound is hit.
func NewMemory(maxKeys int, now func() time.Time) domain.RateLimiter {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	if now == nil {
		now = time.Now
	}
	return &memoryLimiter{
		now:     now,
		windows: make(map[string]*window),
		maxKeys: maxKeys,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string, limit int, windowSize time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if ok && now.After(w.endAt) {
		delete(l.windows, key)
		ok = false
	}
	if !ok {
		if len(l.windows) >= l.maxKeys {
			l.sweep(now)
		}
		if len(l.windows) >= l.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
		w = &window{endAt: now.Add(windowSize)}
		l.windows[key] = w
	}

	if w.hits >= limit {
		return domain.RateLimitDecision{Limit: limit, ResetAt: w.endAt}, nil
	}
	w.hits++
	return domain.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.hits,
		ResetAt:   w.endAt,
	}, nil
}

func (l *memoryLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.endAt) {
			delete(l.windows, key)
		}
	}
}
