package domain

import (
	"context"
	"time"
)

// SnapshotCache stores the latest StrategyUpdate per subscription id so the
// REST layer can serve snapshots without touching the stream client.
type SnapshotCache interface {
	Set(ctx context.Context, id string, update StrategyUpdate, ttl time.Duration) error
	Get(ctx context.Context, id string) (StrategyUpdate, error)
	Delete(ctx context.Context, id string) error
}

// UpdateBus fans strategy updates out to dashboard WebSocket clients.
type UpdateBus interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// RateLimiter limits request rates per key over a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
