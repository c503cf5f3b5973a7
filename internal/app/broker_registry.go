package app

import (
	"message-gateway/internal/brokers"
	"message-gateway/internal/brokers/rabbitmq"
	redisbroker "message-gateway/internal/brokers/redis"
	"message-gateway/internal/common/errors"
	"message-gateway/internal/config"
)

// RegisterBrokerFactories registers every message bus the gateway supports
func RegisterBrokerFactories(registry *brokers.Registry) {
	registry.Register(rabbitmq.GetFactory())
	registry.Register(redisbroker.GetFactory())
}

// BrokerConfig translates the environment settings for the chosen dispatcher
func BrokerConfig(cfg *config.Config) (brokers.BrokerConfig, error) {
	switch cfg.Dispatcher {
	case rabbitmq.Type:
		return &rabbitmq.Config{
			URL:           cfg.AMQPURL,
			Exchange:      cfg.AMQPExchange,
			PrefetchCount: cfg.AMQPPrefetch,
			PoolSize:      cfg.AMQPPoolSize,
		}, nil
	case redisbroker.Type:
		return &redisbroker.Config{
			Address:      cfg.RedisAddress,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			StreamMaxLen: cfg.RedisStreamMaxLen,
		}, nil
	default:
		return nil, errors.ConfigErrorf("unsupported dispatcher %q", cfg.Dispatcher)
	}
}

func (app *App) initializeBroker() error {
	if app.Broker != nil {
		return nil
	}

	brokerConfig, err := BrokerConfig(app.Config)
	if err != nil {
		return err
	}

	registry := brokers.NewRegistry()
	RegisterBrokerFactories(registry)

	broker, err := registry.Create(app.Config.Dispatcher, brokerConfig, app.Logger)
	if err != nil {
		return err
	}
	app.Broker = broker
	return nil
}
