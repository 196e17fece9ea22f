package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest company prices.
type PriceCache interface {
	SetPrice(ctx context.Context, companyID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, companyID string) (float64, time.Time, error)
	GetPrices(ctx context.Context, companyIDs []string) (map[string]float64, error)
}

// SignalBus publishes engine events (tick summaries, price updates) to a
// stream that other processes can consume.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of payloads published on the named
	// channel. The channel closes when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// StreamMessage is one entry read from a durable signal stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// LockManager provides distributed mutual exclusion for jobs that must not
// run concurrently across processes (for example the archival sweep).
type LockManager interface {
	// Acquire obtains the named lock or returns ErrLockHeld. On success the
	// returned function releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter throttles outbound calls to shared collaborators such as the
// text-generation service.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}
