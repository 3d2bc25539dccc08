// internal/infrastructure/database/redis/connection.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shipping-updates/storefront/internal/config"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 3 * time.Second

// Client owns the connection shared by the cart store, the checkout
// store and the rate limiter.
type Client struct {
	rdb *redis.Client
}

// NewConnection dials Redis and fails fast when it does not answer
func NewConnection(cfg *config.Config, logger logrus.FieldLogger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  pingTimeout,
		WriteTimeout: pingTimeout,
		PoolTimeout:  4 * time.Second,
	})

	c := &Client{rdb: rdb}
	if err := c.Health(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.GetRedisAddr(), err)
	}

	logger.WithFields(logrus.Fields{
		"addr": cfg.GetRedisAddr(),
		"db":   cfg.Redis.DB,
	}).Info("redis connection established")
	return c, nil
}

// GetClient returns the underlying client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Health pings Redis
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection pool
func (c *Client) Close() error {
	return c.rdb.Close()
}
