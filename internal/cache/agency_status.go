// Package cache holds the Redis-backed agency status cache used by the
// per-request tenant gate.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tripdesk/agency-api/internal/config"
	"github.com/tripdesk/agency-api/internal/domain"
)

const keyPrefix = "agency:status:"

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// AgencyStatusCache stores agency status values with a short TTL
type AgencyStatusCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewAgencyStatusCache(client redis.Cmdable, ttl time.Duration) *AgencyStatusCache {
	return &AgencyStatusCache{client: client, ttl: ttl}
}

func key(agencyID uuid.UUID) string {
	return keyPrefix + agencyID.String()
}

// Get returns the cached status. The boolean is false on a cache miss.
func (c *AgencyStatusCache) Get(ctx context.Context, agencyID uuid.UUID) (domain.AgencyStatus, bool, error) {
	val, err := c.client.Get(ctx, key(agencyID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read agency status from cache: %w", err)
	}

	status := domain.AgencyStatus(val)
	if !status.IsValid() {
		return "", false, nil
	}
	return status, true, nil
}

func (c *AgencyStatusCache) Set(ctx context.Context, agencyID uuid.UUID, status domain.AgencyStatus) error {
	if err := c.client.Set(ctx, key(agencyID), string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write agency status to cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached status so the next request reads the database
func (c *AgencyStatusCache) Invalidate(ctx context.Context, agencyID uuid.UUID) error {
	if err := c.client.Del(ctx, key(agencyID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate agency status: %w", err)
	}
	return nil
}

// Ping checks the Redis connection for readiness probes
func (c *AgencyStatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
