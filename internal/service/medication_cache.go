package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const medicationCacheTTL = 24 * time.Hour

// RedisMedicationCache keeps successful registry lookups in Redis
type RedisMedicationCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisMedicationCache creates a new RedisMedicationCache instance
func NewRedisMedicationCache(client *redis.Client, logger *zap.Logger) *RedisMedicationCache {
	return &RedisMedicationCache{
		redis:  client,
		ttl:    medicationCacheTTL,
		logger: logger,
	}
}

func medicationCacheKey(name string) string {
	return fmt.Sprintf("medication:record:%s", strings.ToLower(strings.TrimSpace(name)))
}

// Get returns the cached record for name. Redis errors count as a miss.
func (c *RedisMedicationCache) Get(ctx context.Context, name string) (*MedicationRecord, bool) {
	data, err := c.redis.Get(ctx, medicationCacheKey(name)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("medication cache read failed", zap.String("medication", name), zap.Error(err))
		}
		return nil, false
	}

	var record MedicationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.Warn("discarding corrupt medication cache entry", zap.String("medication", name), zap.Error(err))
		return nil, false
	}
	record.ActiveIngredients = nonNil(record.ActiveIngredients)
	record.Excipients = nonNil(record.Excipients)

	return &record, true
}

// Set stores a record under name for the cache TTL
func (c *RedisMedicationCache) Set(ctx context.Context, name string, record MedicationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal medication record: %w", err)
	}

	if err := c.redis.Set(ctx, medicationCacheKey(name), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save medication record to Redis: %w", err)
	}
	return nil
}
