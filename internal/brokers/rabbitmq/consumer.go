package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"message-gateway/internal/brokers"
	"message-gateway/internal/brokers/base"
	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
)

// Consumer reads one durable queue. Pause cancels the AMQP consumer so the
// server stops delivering; Resume starts a fresh one on the same channel.
type Consumer struct {
	pool     ConnectionPoolInterface
	exchange string
	queue    string
	prefetch int
	handler  *base.MessageHandler
	logger   logging.Logger

	mu      sync.Mutex
	client  ClientInterface
	tag     string
	started bool
	paused  bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ brokers.Consumer = (*Consumer)(nil)

func newConsumer(pool ConnectionPoolInterface, config *Config, queue string, handler brokers.Handler, logger logging.Logger) *Consumer {
	logger = logger.WithFields(logging.String("queue", queue))
	return &Consumer{
		pool:     pool,
		exchange: config.Exchange,
		queue:    queue,
		prefetch: config.PrefetchCount,
		handler:  base.NewMessageHandler(handler, logger, Type, queue),
		logger:   logger,
	}
}

func (c *Consumer) Queue() string {
	return c.queue
}

// Start declares and binds the queue and begins delivering to the handler.
// Deliveries stop when ctx is cancelled or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return errors.InternalError("consumer is stopped", nil).WithContext("queue", c.queue)
	}
	if c.started {
		return nil
	}

	client, err := c.pool.NewClient()
	if err != nil {
		return errors.ConnectionError("failed to get AMQP client", err).WithContext("queue", c.queue)
	}
	if err := declareBoundQueue(client, c.exchange, c.queue); err != nil {
		client.Close()
		return errors.ConnectionError("failed to set up queue", err).WithContext("queue", c.queue)
	}
	if c.prefetch > 0 {
		if err := client.Qos(c.prefetch, 0, false); err != nil {
			client.Close()
			return errors.ConnectionError("failed to set prefetch", err).WithContext("queue", c.queue)
		}
	}

	c.client = client
	c.ctx, c.cancel = context.WithCancel(ctx)
	if err := c.consume(); err != nil {
		c.cancel()
		client.Close()
		return err
	}

	c.started = true
	c.logger.Info("Consumer started", logging.String("tag", c.tag))
	return nil
}

// consume registers a new consumer tag. Caller holds c.mu.
func (c *Consumer) consume() error {
	tag := fmt.Sprintf("%s-%s", c.queue, uuid.NewString())
	deliveries, err := c.client.Consume(c.queue, tag, false, false, false, false, nil)
	if err != nil {
		return errors.ConnectionError("failed to start consuming", err).WithContext("queue", c.queue)
	}
	c.tag = tag

	c.wg.Add(1)
	go c.loop(c.ctx, deliveries)
	return nil
}

func (c *Consumer) loop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.settle(d, c.handler.Handle(ctx, d.Body, logging.String("routing_key", d.RoutingKey)))
		}
	}
}

func (c *Consumer) settle(d amqp.Delivery, outcome base.Outcome) {
	var err error
	switch outcome {
	case base.Ack:
		err = d.Ack(false)
	case base.Requeue:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		c.logger.Error("Failed to settle delivery", err,
			logging.String("outcome", outcome.String()),
			logging.String("message_id", d.MessageId),
		)
	}
}

// Pause stops the server from delivering more messages. Messages already
// prefetched are still handed to the handler.
func (c *Consumer) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.stopped || c.paused {
		return nil
	}
	if err := c.client.Cancel(c.tag, false); err != nil {
		return errors.ConnectionError("failed to cancel consumer", err).WithContext("queue", c.queue)
	}
	c.paused = true
	c.logger.Info("Consumer paused")
	return nil
}

// Resume undoes Pause
func (c *Consumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.stopped || !c.paused {
		return nil
	}
	if err := c.consume(); err != nil {
		return err
	}
	c.paused = false
	c.logger.Info("Consumer resumed", logging.String("tag", c.tag))
	return nil
}

// Stop cancels the consumer and waits for the delivery loop to finish.
// Unacknowledged deliveries return to the queue.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true

	var err error
	if c.started {
		c.cancel()
		if !c.paused {
			err = c.client.Cancel(c.tag, false)
		}
		c.client.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("Consumer stopped")
	return err
}

// Paused reports whether deliveries are currently suspended
func (c *Consumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
