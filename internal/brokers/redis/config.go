package redis

import (
	"fmt"
	"time"

	"message-gateway/internal/common/validation"
)

// Type is the dispatcher name the Redis Streams broker registers under
const Type = "redis"

type Config struct {
	Address       string        `json:"address" yaml:"address" validate:"required,hostname_port"`
	Password      string        `json:"password" yaml:"password"`
	DB            int           `json:"db" yaml:"db" validate:"min=0,max=15"`
	PoolSize      int           `json:"pool_size" yaml:"pool_size" validate:"min=1"`
	StreamMaxLen  int64         `json:"stream_max_len" yaml:"stream_max_len" validate:"min=0"` // 0 means no limit
	ConsumerGroup string        `json:"consumer_group" yaml:"consumer_group" validate:"required"`
	ConsumerName  string        `json:"consumer_name" yaml:"consumer_name" validate:"required"`
	BlockTimeout  time.Duration `json:"block_timeout" yaml:"block_timeout"`
	BatchSize     int64         `json:"batch_size" yaml:"batch_size" validate:"min=1"`
}

func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "message-gateway"
	}
	if c.ConsumerName == "" {
		c.ConsumerName = "message-gateway-consumer"
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}

	return validation.ValidateStruct(c)
}

func (c *Config) GetType() string {
	return Type
}

func (c *Config) GetConnectionString() string {
	return fmt.Sprintf("redis://%s/%d", c.Address, c.DB)
}

func DefaultConfig() *Config {
	return &Config{
		Address:       "localhost:6379",
		PoolSize:      10,
		ConsumerGroup: "message-gateway",
		ConsumerName:  "message-gateway-consumer",
		BlockTimeout:  time.Second,
		BatchSize:     10,
	}
}
