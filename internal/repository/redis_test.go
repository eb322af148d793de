package repository

import (
	"context"
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	limiter := NewRedisRateLimiter(client)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("LimitWithinWindow", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := limiter.Allow(ctx, "user:1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := limiter.Allow(ctx, "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		assert.Equal(t, time.Minute, s.TTL(rateLimitKeyPrefix+"user:1"))
	})

	t.Run("WindowExpires", func(t *testing.T) {
		s.FastForward(2 * time.Minute)
		allowed, err := limiter.Allow(ctx, "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.Close()
		_, err := limiter.Allow(ctx, "user:2", 3, time.Minute)
		assert.Error(t, err)
	})
}

func TestRedisRateLimiterNilClient(t *testing.T) {
	limiter := NewRedisRateLimiter(nil)
	_, err := limiter.Allow(context.Background(), "user:1", 1, time.Minute)
	assert.Error(t, err)

	var client *redis.Client
	assert.NoError(t, Close(client))
}
