// Package data provides the Redis snapshot cache that sits between the
// on-chain providers and the engine. The engine itself never reads it: the
// application layer consults the cache before paying for an RPC round trip.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vaultrun/vaultrun/internal/providers/lens"
)

// CacheEntry wraps a cached snapshot with fetch attribution.
type CacheEntry struct {
	Snapshot  lens.VaultInfo `json:"snapshot"`
	Source    string         `json:"source"`
	CachedAt  time.Time      `json:"cached_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// CacheStats tracks hit behavior for the metrics endpoint.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// SnapshotCache stores vault snapshots keyed by lowercase address.
type SnapshotCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration

	hits, misses, sets, errs atomic.Int64
}

// NewSnapshotCache wraps a Redis client. TTL bounds snapshot staleness; a
// zero TTL defaults to one minute.
func NewSnapshotCache(client redis.UniversalClient, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SnapshotCache{client: client, keyPrefix: "vaultrun:snapshot:", ttl: ttl}
}

func (c *SnapshotCache) key(address string) string {
	return c.keyPrefix + strings.ToLower(address)
}

// Get returns the cached snapshot for a vault, or (nil, false) on a miss.
// Redis errors degrade to a miss: a dead cache must not block evaluation.
func (c *SnapshotCache) Get(ctx context.Context, address string) (*lens.VaultInfo, bool) {
	raw, err := c.client.Get(ctx, c.key(address)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.errs.Add(1)
			log.Warn().Err(err).Str("vault", address).Msg("snapshot cache read failed")
		}
		c.misses.Add(1)
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.errs.Add(1)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &entry.Snapshot, true
}

// Set stores a snapshot under the cache TTL.
func (c *SnapshotCache) Set(ctx context.Context, info *lens.VaultInfo, source string) error {
	now := time.Now().UTC()
	payload, err := json.Marshal(CacheEntry{
		Snapshot:  *info,
		Source:    source,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot %s: %w", info.Address, err)
	}
	if err := c.client.Set(ctx, c.key(info.Address), payload, c.ttl).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("cache: store snapshot %s: %w", info.Address, err)
	}
	c.sets.Add(1)
	return nil
}

// Stats returns a point-in-time copy of the counters.
func (c *SnapshotCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Errors: c.errs.Load(),
	}
}
