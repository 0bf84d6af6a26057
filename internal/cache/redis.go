package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type redisCache struct {
	client  *redis.Client
	logger  *slog.Logger
	prefix  string
	timeout time.Duration
}

// NewRedis returns a Cache backed by Redis. Redis failures degrade to the
// loader so a cache outage never takes reads down with it.
func NewRedis(addr, password string, db int, logger *slog.Logger) (Cache, error) {
	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &redisCache{
		client:  client,
		logger:  logger,
		prefix:  "taskpulse:cache:",
		timeout: 250 * time.Millisecond,
	}, nil
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	redisKey := c.prefix + key
	getCtx, cancel := context.WithTimeout(ctx, c.timeout)
	value, err := c.client.Get(getCtx, redisKey).Bytes()
	cancel()
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logRedisError("get", err)
	}

	value, err = loader(ctx)
	if err != nil {
		return nil, err
	}
	setCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Set(setCtx, redisKey, value, ttl).Err(); err != nil {
		c.logRedisError("set", err)
	}
	return value, nil
}

func (c *redisCache) Invalidate(ctx context.Context, key string) {
	delCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Del(delCtx, c.prefix+key).Err(); err != nil {
		c.logRedisError("del", err)
	}
}

func (c *redisCache) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

func (c *redisCache) logRedisError(op string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error("redis cache error", "op", op, "error", err)
}
