package cache_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-app/internal/cache"
	"movie-app/internal/config"
	"movie-app/internal/logging"
)

func TestKeysShareMoviesPrefix(t *testing.T) {
	for _, key := range []string{cache.TrendingKey, cache.TopRatedKey} {
		assert.True(t, strings.HasPrefix(key, cache.MoviesPrefix), key)
	}
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c cache.Cache = cache.Nop{}

	require.NoError(t, c.Set(ctx, cache.TrendingKey, []int{1, 2}, time.Minute))
	var dst []int
	hit, err := c.Get(ctx, cache.TrendingKey, &dst)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, dst)
	assert.NoError(t, c.DeletePrefix(ctx, cache.MoviesPrefix))
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := cache.NewRedis(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
