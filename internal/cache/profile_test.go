package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/domain"
)

func setupTestCache(t *testing.T) (*RedisProfileCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRedisProfileCache(client, "test:profile:", time.Minute, logger), mr
}

func TestRedisProfileCache(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	user := &domain.User{
		ID:           7,
		Username:     "alice",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "$2a$10$should-not-be-cached",
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	t.Run("miss", func(t *testing.T) {
		c, _ := setupTestCache(t)
		_, ok := c.Get(ctx, 7)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		c, mr := setupTestCache(t)
		c.Set(ctx, user)

		raw, err := mr.Get("test:profile:7")
		require.NoError(t, err)
		assert.NotContains(t, raw, "should-not-be-cached")
		assert.Equal(t, time.Minute, mr.TTL("test:profile:7"))

		got, ok := c.Get(ctx, 7)
		require.True(t, ok)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Equal(t, "Alice", got.Name)
		assert.Empty(t, got.PasswordHash)
		assert.True(t, created.Equal(got.CreatedAt))
	})

	t.Run("expires", func(t *testing.T) {
		c, mr := setupTestCache(t)
		c.Set(ctx, user)
		mr.FastForward(2 * time.Minute)

		_, ok := c.Get(ctx, 7)
		assert.False(t, ok)
	})

	t.Run("invalidate", func(t *testing.T) {
		c, _ := setupTestCache(t)
		c.Set(ctx, user)
		c.Invalidate(ctx, 7)

		_, ok := c.Get(ctx, 7)
		assert.False(t, ok)
	})

	t.Run("corrupt entry is a miss", func(t *testing.T) {
		c, mr := setupTestCache(t)
		require.NoError(t, mr.Set("test:profile:7", "{not json"))

		_, ok := c.Get(ctx, 7)
		assert.False(t, ok)
	})

	t.Run("unavailable redis is a miss", func(t *testing.T) {
		c, mr := setupTestCache(t)
		c.Set(ctx, user)
		mr.Close()

		_, ok := c.Get(ctx, 7)
		assert.False(t, ok)
		c.Set(ctx, user)
		c.Invalidate(ctx, 7)
	})
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Noop
	c.Set(ctx, &domain.User{ID: 1})
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)
}
