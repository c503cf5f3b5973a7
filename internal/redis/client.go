// Package redis is the Redis-backed rate window store shared by every
// gateway instance.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"message-gateway/internal/common/errors"
)

// scanBatch is the COUNT hint passed to SCAN
const scanBatch = 256

type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.ConfigError("redis config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.ConnectionError("failed to connect to Redis", err).
			WithContext("address", config.Address)
	}

	return &Client{
		rdb:    rdb,
		config: config,
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Cmdable exposes the underlying connection to components that share it,
// such as the stream dispatcher.
func (c *Client) Cmdable() redis.Cmdable {
	return c.rdb
}

// SetWithExpiry stores value under key; Redis expires it after ttl
func (c *Client) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// KeysMatching walks the keyspace with SCAN so a large window never blocks
// the server the way KEYS would.
func (c *Client) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)
	seen := make(map[string]struct{})

	var cursor uint64
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		// SCAN may return a key more than once across iterations
		for _, key := range batch {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
