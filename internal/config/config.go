// Package config loads the gateway's process settings from the environment
// and its routers and channels from a YAML routing file.
//
// Environment Variables:
//
//   - PORT: status server port (default: 8080)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - ROUTING_CONFIG: path of the routing file (default: ./routing.yaml)
//   - STORE: rate window store, "redis" or "memory" (default: redis)
//   - DISPATCHER: message bus, "amqp" or "redis" (default: amqp)
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - REDIS_STREAM_MAX_LEN: approximate stream cap, 0 for none (default: 0)
//   - AMQP_URL: AMQP broker URL (required when DISPATCHER=amqp)
//   - AMQP_EXCHANGE: exchange every endpoint queue is bound to (default: vumi)
//   - AMQP_PREFETCH: unacknowledged deliveries per consumer (default: 20)
//   - AMQP_POOL_SIZE: AMQP connections shared by every channel (default: 5)
//
// A .env file in the working directory is read first when present.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/validation"
)

// Config holds the process settings.
type Config struct {
	Port          string `validate:"required,numeric"`
	LogLevel      string `validate:"oneof=debug info warn warning error"`
	RoutingConfig string `validate:"required"`
	Store         string `validate:"store_type"`
	Dispatcher    string `validate:"dispatcher_type"`

	RedisAddress      string `validate:"required,hostname_port"`
	RedisPassword     string
	RedisDB           int   `validate:"min=0,max=15"`
	RedisPoolSize     int   `validate:"min=1"`
	RedisStreamMaxLen int64 `validate:"min=0"`

	AMQPURL      string
	AMQPExchange string `validate:"required"`
	AMQPPrefetch int    `validate:"min=0,max=65535"`
	AMQPPoolSize int    `validate:"min=0,max=100"`
}

// Load reads .env (if any) and the environment. It does not validate.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RoutingConfig: getEnv("ROUTING_CONFIG", "./routing.yaml"),
		Store:         getEnv("STORE", "redis"),
		Dispatcher:    getEnv("DISPATCHER", "amqp"),

		RedisAddress:      getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getIntEnv("REDIS_DB", 0),
		RedisPoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
		RedisStreamMaxLen: int64(getIntEnv("REDIS_STREAM_MAX_LEN", 0)),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "vumi"),
		AMQPPrefetch: getIntEnv("AMQP_PREFETCH", 20),
		AMQPPoolSize: getIntEnv("AMQP_POOL_SIZE", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns defaultValue when key is unset. A value that is not a
// number yields -1 so that Validate rejects it instead of silently using
// the default.
func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return parsed
}

// Validate checks field formats and the settings each choice depends on.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return errors.WrapConfigError("invalid environment configuration", err)
	}

	if port, _ := strconv.Atoi(c.Port); port < 1 || port > 65535 {
		return errors.ConfigError("PORT must be a valid port number between 1 and 65535")
	}

	if c.Dispatcher == "amqp" {
		if err := validation.ValidateVar(c.AMQPURL, "required,url"); err != nil {
			return errors.WrapConfigError("AMQP_URL must be set to a valid URL when DISPATCHER=amqp", err)
		}
	}

	return nil
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Store == "redis" || c.Dispatcher == "redis"
}
