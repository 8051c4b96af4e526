package domain

import (
	"context"
	"time"
)

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// ObjectStore abstracts the object storage collaborator holding originals,
// captured images and certified artifacts.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// FullySignedEvent is emitted exactly once per request transition into signed.
type FullySignedEvent struct {
	RequestID    string
	Title        string
	CreatorEmail string
	SignedAt     time.Time
}

// Notifier delivers the fully-signed event to the creator. Delivery is
// best-effort: callers record the outcome but never fail the commit on it.
type Notifier interface {
	NotifyFullySigned(ctx context.Context, event FullySignedEvent) error
}
