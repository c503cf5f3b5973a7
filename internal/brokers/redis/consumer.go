package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"message-gateway/internal/brokers"
	"message-gateway/internal/brokers/base"
	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
)

// Consumer reads one stream through the configured consumer group.
//
// Entries whose handler fails stay pending and are read again, from the
// group's pending list, before any new entry. While paused the read loop
// issues no XREADGROUP at all.
type Consumer struct {
	connect connector
	rdb     redis.Cmdable
	release func() error
	stream  string
	group   string
	name    string
	block   time.Duration
	count   int64
	handler *base.MessageHandler
	logger  logging.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	paused  bool
	resume  chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ brokers.Consumer = (*Consumer)(nil)

func newConsumer(connect connector, config *Config, stream string, handler brokers.Handler, logger logging.Logger) *Consumer {
	logger = logger.WithFields(
		logging.String("stream", stream),
		logging.String("consumer_group", config.ConsumerGroup),
	)
	return &Consumer{
		connect: connect,
		stream:  stream,
		group:   config.ConsumerGroup,
		name:    config.ConsumerName,
		block:   config.BlockTimeout,
		count:   config.BatchSize,
		handler: base.NewMessageHandler(handler, logger, Type, stream),
		logger:  logger,
	}
}

func (c *Consumer) Queue() string {
	return c.stream
}

// Start creates the stream and the group when missing and starts the read loop.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return errors.InternalError("consumer is stopped", nil).WithContext("stream", c.stream)
	}
	if c.started {
		return nil
	}

	rdb, release, err := c.connect()
	if err != nil {
		return errors.ConnectionError("failed to open consumer connection", err).
			WithContext("stream", c.stream)
	}

	err = rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		_ = release()
		return errors.ConnectionError("failed to create consumer group", err).
			WithContext("stream", c.stream)
	}
	c.rdb, c.release = rdb, release

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true

	go c.loop(loopCtx)

	c.logger.Info("Consumer started", logging.String("consumer", c.name))
	return nil
}

func (c *Consumer) loop(ctx context.Context) {
	defer close(c.done)

	// Pending entries of this consumer are read first, e.g. after a restart.
	pendingFirst := true

	for {
		if !c.waitWhilePaused(ctx) {
			return
		}

		id := ">"
		block := c.block
		if pendingFirst {
			id = "0"
			block = -1
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, id},
			Count:    c.count,
			Block:    block,
		}).Result()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if err == redis.Nil {
				pendingFirst = false
				continue
			}
			c.logger.Error("Redis consumer error", err)
			if !sleep(ctx, c.block) {
				return
			}
			continue
		}

		read := 0
		requeued := false
		for _, stream := range streams {
			for _, entry := range stream.Messages {
				read++
				if c.process(ctx, entry) == base.Requeue {
					requeued = true
				}
			}
		}

		if pendingFirst && read == 0 {
			pendingFirst = false
		}
		if requeued {
			pendingFirst = true
			if !sleep(ctx, c.block) {
				return
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, entry redis.XMessage) base.Outcome {
	body, _ := entry.Values["body"].(string)
	outcome := c.handler.Handle(ctx, []byte(body), logging.String("entry_id", entry.ID))

	if outcome == base.Requeue {
		return outcome
	}

	// Rejected entries are acknowledged too, or they would be read forever.
	if err := c.rdb.XAck(ctx, c.stream, c.group, entry.ID).Err(); err != nil {
		c.logger.Error("Failed to acknowledge Redis message", err,
			logging.String("entry_id", entry.ID),
			logging.String("outcome", outcome.String()),
		)
	}
	return outcome
}

// waitWhilePaused blocks until the consumer is flowing. It returns false
// once ctx is done.
func (c *Consumer) waitWhilePaused(ctx context.Context) bool {
	c.mu.Lock()
	paused, resume := c.paused, c.resume
	c.mu.Unlock()

	if paused {
		select {
		case <-resume:
		case <-ctx.Done():
			return false
		}
	}
	return ctx.Err() == nil
}

// Pause stops the loop from reading new entries. A batch being handled
// runs to completion.
func (c *Consumer) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.paused {
		return nil
	}
	c.paused = true
	c.resume = make(chan struct{})
	c.logger.Info("Consumer paused")
	return nil
}

// Resume undoes Pause
func (c *Consumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || !c.paused {
		return nil
	}
	c.paused = false
	close(c.resume)
	c.logger.Info("Consumer resumed")
	return nil
}

// Paused reports whether reads are currently suspended
func (c *Consumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stop ends the read loop and waits for it. A read blocked on the server
// returns within the block timeout.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	started, cancel, done := c.started, c.cancel, c.done
	c.mu.Unlock()

	if started {
		cancel()
		<-done
		if err := c.release(); err != nil {
			c.logger.Warn("Failed to close consumer connection", logging.Err(err))
		}
	}
	c.logger.Info("Consumer stopped")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
