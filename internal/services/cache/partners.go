// Package cache stores ranked partner lists in Redis so repeated searches skip rescoring.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studybuddy-matcher/internal/config"
	"studybuddy-matcher/internal/models"
)

// deleteBatchSize bounds the keys per SCAN page and per DEL.
const deleteBatchSize = 100

const keyPrefix = "partners:"

// PartnerCache is a cache-aside store keyed by requester uid.
type PartnerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to the Redis instance named in cfg.
func New(ctx context.Context, cfg *config.Config) (*PartnerCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewWithClient(client, cfg.CacheTTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *PartnerCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PartnerCache{client: client, ttl: ttl}
}

func key(uid string) string {
	return keyPrefix + uid
}

// Get returns the cached ranking for uid. ok is false on a miss.
func (c *PartnerCache) Get(ctx context.Context, uid string) (matches []models.MatchResult, ok bool, err error) {
	val, err := c.client.Get(ctx, key(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached partners: %w", err)
	}

	if err := json.Unmarshal(val, &matches); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached partners: %w", err)
	}
	return matches, true, nil
}

// Set stores the ranking for uid with the configured TTL.
func (c *PartnerCache) Set(ctx context.Context, uid string, matches []models.MatchResult) error {
	if matches == nil {
		matches = []models.MatchResult{}
	}
	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to encode partners: %w", err)
	}
	if err := c.client.Set(ctx, key(uid), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache partners: %w", err)
	}
	return nil
}

// Invalidate drops the ranking cached for uid.
func (c *PartnerCache) Invalidate(ctx context.Context, uid string) error {
	if err := c.client.Del(ctx, key(uid)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate partners: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached ranking. Any profile change can move a
// candidate in or out of someone else's list, so imports clear everything.
// Keys are collected before deletion so the SCAN cursor never sees a shrinking keyspace.
func (c *PartnerCache) InvalidateAll(ctx context.Context) (int, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", deleteBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan cached partners: %w", err)
	}

	removed := 0
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to invalidate partners: %w", err)
		}
		removed += int(n)
	}

	return removed, nil
}

// Ping checks connectivity.
func (c *PartnerCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *PartnerCache) Close() error {
	return c.client.Close()
}
