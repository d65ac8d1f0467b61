package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache using Redis strings. Each
// subscription's latest update is stored as JSON at key
// "snapshot:{strategyID}" with an optional TTL so stale snapshots age out
// when the stream goes quiet.
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func snapshotKey(id string) string {
	return "snapshot:" + id
}

// Set stores the latest update for a subscription.
func (sc *SnapshotCache) Set(ctx context.Context, id string, update domain.StrategyUpdate, ttl time.Duration) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", id, err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", id, err)
	}
	return nil
}

// Get retrieves the latest update for a subscription. It returns
// domain.ErrNotFound when no snapshot exists.
func (sc *SnapshotCache) Get(ctx context.Context, id string) (domain.StrategyUpdate, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.StrategyUpdate{}, domain.ErrNotFound
		}
		return domain.StrategyUpdate{}, fmt.Errorf("redis: get snapshot %s: %w", id, err)
	}

	var update domain.StrategyUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return domain.StrategyUpdate{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", id, err)
	}
	return update, nil
}

// Delete removes a subscription's snapshot.
func (sc *SnapshotCache) Delete(ctx context.Context, id string) error {
	if err := sc.rdb.Del(ctx, snapshotKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: delete snapshot %s: %w", id, err)
	}
	return nil
}
