package app

import (
	"message-gateway/internal/common/logging"
	"message-gateway/internal/config"
	"message-gateway/internal/ratelimit"
	"message-gateway/internal/redis"
)

func (app *App) initializeStore() error {
	if app.Store != nil {
		return nil
	}

	if app.Config.Store == "memory" {
		app.Store = ratelimit.NewMemoryStore()
		app.Logger.Warn("Rate windows are kept in memory and are not shared between instances")
		return nil
	}

	client, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = client
	app.Store = client
	app.Logger.Info("Redis: Connected", logging.String("address", app.Config.RedisAddress))
	return nil
}

// NewStandaloneStore connects to the configured store without building the
// rest of the gateway. The returned func releases the connection.
func NewStandaloneStore(cfg *config.Config) (ratelimit.Store, func() error, error) {
	if cfg.Store == "memory" {
		return ratelimit.NewMemoryStore(), func() error { return nil }, nil
	}

	client, err := redis.NewClient(&redis.Config{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}
