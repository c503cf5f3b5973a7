// Package rabbitmq provides the AMQP implementation of the broker interface.
//
// Every endpoint owns one durable queue per direction, named and bound by its
// routing key (see brokers.RoutingKey) on a single direct exchange. Messages
// travel as persistent JSON publishings.
package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"message-gateway/internal/brokers"
	"message-gateway/internal/brokers/base"
	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/message"
)

// Broker implements brokers.Broker over a pooled set of AMQP connections
type Broker struct {
	*base.BaseBroker
	config *Config

	mu       sync.RWMutex
	pool     ConnectionPoolInterface
	declared sync.Map
}

// NewBroker dials config.PoolSize connections and declares the exchange.
func NewBroker(config *Config, logger logging.Logger) (*Broker, error) {
	if config == nil {
		return nil, errors.ConfigError("amqp config is required")
	}
	baseBroker, err := base.NewBaseBroker(Type, config, logger)
	if err != nil {
		return nil, err
	}

	pool, err := NewConnectionPool(config.URL, config.PoolSize, baseBroker.GetLogger())
	if err != nil {
		return nil, errors.ConnectionError("failed to create AMQP connection pool", err).
			WithContext("connection", config.GetConnectionString())
	}

	return newBroker(baseBroker, config, pool)
}

// NewBrokerWithPool creates a broker with an injected connection pool (for testing)
func NewBrokerWithPool(config *Config, pool ConnectionPoolInterface, logger logging.Logger) (*Broker, error) {
	if config == nil {
		return nil, errors.ConfigError("amqp config is required")
	}
	baseBroker, err := base.NewBaseBroker(Type, config, logger)
	if err != nil {
		return nil, err
	}
	return newBroker(baseBroker, config, pool)
}

func newBroker(baseBroker *base.BaseBroker, config *Config, pool ConnectionPoolInterface) (*Broker, error) {
	b := &Broker{
		BaseBroker: baseBroker,
		config:     config,
		pool:       pool,
	}

	client, err := pool.NewClient()
	if err != nil {
		pool.Close()
		return nil, errors.ConnectionError("failed to get AMQP client", err)
	}
	defer client.Close()

	if err := client.ExchangeDeclare(config.Exchange, config.ExchangeType, true, false, false, false, nil); err != nil {
		pool.Close()
		return nil, errors.ConnectionError("failed to declare exchange "+config.Exchange, err)
	}

	b.GetLogger().Info("AMQP broker connected",
		logging.String("exchange", config.Exchange),
		logging.Int("pool_size", config.PoolSize),
	)
	return b, nil
}

// PublishOutbound sends msg to the endpoint's outbound queue
func (b *Broker) PublishOutbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.publish(ctx, brokers.RoutingKey(endpoint, message.Outbound), msg)
}

// PublishInbound sends msg to the endpoint's inbound queue
func (b *Broker) PublishInbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.publish(ctx, brokers.RoutingKey(endpoint, message.Inbound), msg)
}

// PublishInboundEvent sends msg to the endpoint's event queue
func (b *Broker) PublishInboundEvent(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.publish(ctx, brokers.RoutingKey(endpoint, message.Event), msg)
}

func (b *Broker) publish(ctx context.Context, routingKey string, msg *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := base.Encode(msg)
	if err != nil {
		return errors.InternalError("failed to encode message", err)
	}

	client, err := b.client()
	if err != nil {
		return err
	}
	defer client.Close()

	// Queues are declared on first use so nothing is lost before the
	// receiving side has started consuming.
	if _, done := b.declared.Load(routingKey); !done {
		if err := declareBoundQueue(client, b.config.Exchange, routingKey); err != nil {
			return errors.ConnectionError("failed to declare destination queue", err).
				WithContext("routing_key", routingKey)
		}
		b.declared.Store(routingKey, struct{}{})
	}

	err = client.Publish(b.config.Exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    msg.MessageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return errors.ConnectionError("failed to publish message", err).
			WithContext("routing_key", routingKey).
			WithContext("message_id", msg.MessageID)
	}
	return nil
}

// NewConsumer prepares a consumer of queue; nothing is delivered until Start.
func (b *Broker) NewConsumer(queue string, handler brokers.Handler) (brokers.Consumer, error) {
	if queue == "" {
		return nil, errors.ConfigError("queue name is required")
	}
	if handler == nil {
		return nil, errors.ConfigError("handler is required")
	}

	b.mu.RLock()
	pool := b.pool
	b.mu.RUnlock()
	if err := base.StandardHealthCheck(pool != nil, "AMQP"); err != nil {
		return nil, err
	}

	return newConsumer(pool, b.config, queue, handler, b.GetLogger()), nil
}

// Health declares the exchange again, which fails fast on a dead connection.
func (b *Broker) Health() error {
	client, err := b.client()
	if err != nil {
		return err
	}
	defer client.Close()

	return client.ExchangeDeclare(b.config.Exchange, b.config.ExchangeType, true, false, false, false, nil)
}

// Close gracefully closes all connections in the pool and releases resources.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	return nil
}

func (b *Broker) client() (ClientInterface, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := base.StandardHealthCheck(b.pool != nil, "AMQP"); err != nil {
		return nil, err
	}

	client, err := b.pool.NewClient()
	if err != nil {
		return nil, errors.ConnectionError("failed to get AMQP client", err)
	}
	return client, nil
}
