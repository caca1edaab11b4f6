package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"time"

	"github.com/redis/go-redis/v9"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var _ ports.CacheStore = (*Redis)(nil)

// Redis is a CacheStore backed by a shared Redis instance, for
// deployments where several API replicas serve snapshot queries.
// Snapshots are stored JSON-encoded; a corrupted entry is treated as a
// miss and dropped rather than surfaced as an error.
type Redis struct {
	rdb       *redis.Client
	namespace string
}

// NewRedis wraps a Redis client. namespace defaults to "snapshots".
func NewRedis(rdb *redis.Client, namespace string) *Redis {
	if namespace == "" {
		namespace = "snapshots"
	}
	return &Redis{rdb: rdb, namespace: namespace}
}

func (r *Redis) key(key string) string { return r.namespace + ":" + key }

// GetSnapshot implements ports.CacheStore.
func (r *Redis) GetSnapshot(ctx context.Context, key string) (domain.MetricsSnapshot, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return domain.MetricsSnapshot{}, false, nil
	}
	if err != nil {
		return domain.MetricsSnapshot{}, false, fmt.Errorf("redis get: %w", err)
	}
	var snap domain.MetricsSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// Corrupted entry: drop it and report a miss.
		_ = r.rdb.Del(ctx, r.key(key)).Err()
		return domain.MetricsSnapshot{}, false, nil
	}
	return snap, true, nil
}

// SetSnapshot implements ports.CacheStore.
func (r *Redis) SetSnapshot(ctx context.Context, key string, snap domain.MetricsSnapshot, expiration time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(key), raw, expiration).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate removes all entries under the prefix using a cursor scan,
// so ingest never blocks Redis with a KEYS call.
func (r *Redis) Invalidate(ctx context.Context, prefix string) error {
	pattern := r.key(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
