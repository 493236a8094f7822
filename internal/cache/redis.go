package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/skyreserve/config"
	"github.com/redis/go-redis/v9"
)

// AdmissionGuard marks a (flight, user) pair as having a booking in flight,
// so the same user cannot queue a second request for the flight before the
// first one is persisted.
type AdmissionGuard interface {
	Acquire(ctx context.Context, flightID, userID int64) (bool, error)
	Release(ctx context.Context, flightID, userID int64) error
}

type RedisCache struct {
	client  *redis.Client
	lockTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client *redis.Client, lockTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, lockTTL: lockTTL}
}

// Acquire sets the pair's lock if it is free. The TTL bounds how long a lost
// release can block the pair.
func (c *RedisCache) Acquire(ctx context.Context, flightID, userID int64) (bool, error) {
	ok, err := c.client.SetNX(ctx, admissionKey(flightID, userID), "queued", c.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire admission lock: %w", err)
	}
	return ok, nil
}

func (c *RedisCache) Release(ctx context.Context, flightID, userID int64) error {
	if err := c.client.Del(ctx, admissionKey(flightID, userID)).Err(); err != nil {
		return fmt.Errorf("release admission lock: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func admissionKey(flightID, userID int64) string {
	return fmt.Sprintf("lock:flight:%d:user:%d", flightID, userID)
}

var _ AdmissionGuard = (*RedisCache)(nil)
