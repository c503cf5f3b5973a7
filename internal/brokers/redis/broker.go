// Package redis provides a Redis Streams implementation of the broker interface.
//
// Each routing key (see brokers.RoutingKey) is a stream. Entries carry the
// JSON-encoded message in the "body" field and are read through a consumer
// group, so several gateway instances share the work of one stream.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"message-gateway/internal/brokers"
	"message-gateway/internal/brokers/base"
	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/message"
	redisstore "message-gateway/internal/redis"
)

// connector hands a consumer the connection its blocking reads run on,
// with the func that releases it.
type connector func() (redis.Cmdable, func() error, error)

// Broker implements brokers.Broker for Redis Streams
type Broker struct {
	*base.BaseBroker
	config  *Config
	rdb     redis.Cmdable
	owned   *redisstore.Client
	readers connector

	mu        sync.RWMutex
	closed    bool
	consumers int
}

// NewBroker opens its own publish pool to config.Address. Every consumer
// opens a dedicated connection when started, so blocking reads never hold
// connections publishes are waiting for.
func NewBroker(config *Config, logger logging.Logger) (*Broker, error) {
	if config == nil {
		return nil, errors.ConfigError("redis config is required")
	}
	baseBroker, err := base.NewBaseBroker(Type, config, logger)
	if err != nil {
		return nil, err
	}

	client, err := redisstore.NewClient(&redisstore.Config{
		Address:  config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})
	if err != nil {
		return nil, err
	}

	return &Broker{
		BaseBroker: baseBroker,
		config:     config,
		rdb:        client.Cmdable(),
		owned:      client,
		readers:    dedicatedReader(config),
	}, nil
}

func dedicatedReader(config *Config) connector {
	return func() (redis.Cmdable, func() error, error) {
		client, err := redisstore.NewClient(&redisstore.Config{
			Address:  config.Address,
			Password: config.Password,
			DB:       config.DB,
			PoolSize: 1,
		})
		if err != nil {
			return nil, nil, err
		}
		return client.Cmdable(), client.Close, nil
	}
}

// NewBrokerWithClient publishes and consumes over an existing connection,
// for instance the one the rate window store already holds. Close leaves
// that connection open. Each consumer's blocking read occupies one pooled
// connection, so NewConsumer refuses consumers that would leave no
// connection free for publishing.
func NewBrokerWithClient(config *Config, rdb redis.Cmdable, logger logging.Logger) (*Broker, error) {
	if config == nil {
		return nil, errors.ConfigError("redis config is required")
	}
	if rdb == nil {
		return nil, errors.ConfigError("redis connection is required")
	}
	baseBroker, err := base.NewBaseBroker(Type, config, logger)
	if err != nil {
		return nil, err
	}

	return &Broker{
		BaseBroker: baseBroker,
		config:     config,
		rdb:        rdb,
		readers: func() (redis.Cmdable, func() error, error) {
			return rdb, func() error { return nil }, nil
		},
	}, nil
}

// PublishOutbound appends msg to the endpoint's outbound stream
func (b *Broker) PublishOutbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.publish(ctx, brokers.RoutingKey(endpoint, message.Outbound), msg)
}

// PublishInbound appends msg to the endpoint's inbound stream
func (b *Broker) PublishInbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.publish(ctx, brokers.RoutingKey(endpoint, message.Inbound), msg)
}

// PublishInboundEvent appends msg to the endpoint's event stream
func (b *Broker) PublishInboundEvent(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.publish(ctx, brokers.RoutingKey(endpoint, message.Event), msg)
}

func (b *Broker) publish(ctx context.Context, stream string, msg *message.Message) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	body, err := base.Encode(msg)
	if err != nil {
		return errors.InternalError("failed to encode message", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"message_id": msg.MessageID,
			"body":       string(body),
			"timestamp":  time.Now().UnixNano(),
		},
	}
	if b.config.StreamMaxLen > 0 {
		args.MaxLen = b.config.StreamMaxLen
		args.Approx = true
	}

	id, err := b.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return errors.ConnectionError("failed to publish message to Redis stream", err).
			WithContext("stream", stream).
			WithContext("message_id", msg.MessageID)
	}

	b.GetLogger().Debug("Message published to Redis stream",
		logging.String("stream", stream),
		logging.String("id", id),
		logging.String("message_id", msg.MessageID),
	)
	return nil
}

// NewConsumer prepares a consumer group reader of the queue stream.
func (b *Broker) NewConsumer(queue string, handler brokers.Handler) (brokers.Consumer, error) {
	if queue == "" {
		return nil, errors.ConfigError("queue name is required")
	}
	if handler == nil {
		return nil, errors.ConfigError("handler is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := base.StandardHealthCheck(!b.closed, "Redis"); err != nil {
		return nil, err
	}
	if b.owned == nil {
		if size := sharedPoolSize(b.rdb); size > 0 && b.consumers+1 >= size {
			return nil, errors.ConfigErrorf("redis pool of %d connections cannot serve %d blocking consumers and publishes", size, b.consumers+1).
				WithContext("stream", queue)
		}
	}
	b.consumers++
	return newConsumer(b.readers, b.config, queue, handler, b.GetLogger()), nil
}

// Health checks the health of the Redis connection by sending a PING command.
func (b *Broker) Health() error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.rdb.Ping(ctx).Err()
}

// Close releases the connection if the broker opened it.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.owned != nil {
		return b.owned.Close()
	}
	return nil
}

// sharedPoolSize returns the pool size of a shared client, or 0 when unknown
func sharedPoolSize(rdb redis.Cmdable) int {
	if client, ok := rdb.(*redis.Client); ok {
		return client.Options().PoolSize
	}
	return 0
}

func (b *Broker) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return base.StandardHealthCheck(!b.closed, "Redis")
}
