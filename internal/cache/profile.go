// Package cache provides the profile cache used by the user service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/domain"
)

// DefaultTTL bounds how long a cached profile may outlive a missed invalidation.
const DefaultTTL = 5 * time.Minute

type profileEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisProfileCache stores sanitized profiles as JSON under "<prefix><id>".
// Redis failures are logged and treated as misses so an unavailable cache
// never fails a request.
type RedisProfileCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisProfileCache(client *redis.Client, prefix string, ttl time.Duration, logger *logrus.Logger) *RedisProfileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisProfileCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisProfileCache) key(id int64) string {
	return c.prefix + strconv.FormatInt(id, 10)
}

func (c *RedisProfileCache) Get(ctx context.Context, id int64) (*domain.User, bool) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("user_id", id).Warn("profile cache get failed")
		}
		return nil, false
	}

	var entry profileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn("profile cache entry unreadable")
		return nil, false
	}
	return &domain.User{
		ID:        entry.ID,
		Username:  entry.Username,
		Email:     entry.Email,
		Name:      entry.Name,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}, true
}

func (c *RedisProfileCache) Set(ctx context.Context, user *domain.User) {
	if user == nil {
		return
	}
	data, err := json.Marshal(profileEntry{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		c.logger.WithError(err).WithField("user_id", user.ID).Warn("profile cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, c.key(user.ID), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("user_id", user.ID).Warn("profile cache set failed")
	}
}

func (c *RedisProfileCache) Invalidate(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn("profile cache invalidate failed")
	}
}

// Noop is a ProfileCache that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, int64) (*domain.User, bool) { return nil, false }
func (Noop) Set(context.Context, *domain.User)               {}
func (Noop) Invalidate(context.Context, int64)               {}
