package service

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMedicationCacheKey(t *testing.T) {
	assert.Equal(t, "medication:record:tylenol", medicationCacheKey("  Tylenol "))
}

func TestRedisMedicationCache(t *testing.T) {
	// Skip this test if no Redis is available
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("Skipping Redis-dependent test - REDIS_HOST not set")
	}

	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), port),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	t.Cleanup(func() { client.Close() })

	cache := NewRedisMedicationCache(client, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := fmt.Sprintf("cache-test-%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), medicationCacheKey(name)) })

	t.Run("should miss unknown names", func(t *testing.T) {
		_, ok := cache.Get(ctx, name)
		assert.False(t, ok)
	})

	t.Run("should save and retrieve record", func(t *testing.T) {
		record := MedicationRecord{
			Name:              "DrugA",
			ActiveIngredients: []string{"X"},
			Excipients:        []string{"Y"},
			Manufacturer:      "Acme",
		}
		require.NoError(t, cache.Set(ctx, name, record))

		cached, ok := cache.Get(ctx, name)
		require.True(t, ok)
		assert.Equal(t, "DrugA", cached.Name)
		assert.Equal(t, []string{"X"}, cached.ActiveIngredients)
		assert.Equal(t, []string{"Y"}, cached.Excipients)

		ttl, err := client.TTL(ctx, medicationCacheKey(name)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 23*time.Hour)
	})
}
