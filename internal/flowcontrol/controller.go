// Package flowcontrol couples rate window admission to the pause and resume
// controls of the producer feeding a channel.
//
// A Controller starts Flowing. The first rejected admission pauses the
// producer and starts a poll that checks the window every UnpauseCheckDelay.
// When the window has room the producer is resumed and polling stops. At most
// one poll is pending per Controller.
package flowcontrol

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"message-gateway/internal/common/logging"
	"message-gateway/internal/message"
	"message-gateway/internal/metrics"
)

// DefaultUnpauseCheckDelay is the poll interval used when none is configured
const DefaultUnpauseCheckDelay = 500 * time.Millisecond

// ErrClosed is returned by HandleOutbound once Close has been called
var ErrClosed = stderrors.New("flow controller is closed")

// State of a controller's producer
type State int

const (
	Flowing State = iota
	Paused
)

func (s State) String() string {
	switch s {
	case Flowing:
		return "flowing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Limiter is the admission side of a rate window
type Limiter interface {
	Admit(ctx context.Context, tokenID string) (bool, error)
	HasRoom(ctx context.Context) (bool, error)
}

// Producer is the intake that gets paused while the window is full
type Producer interface {
	Pause() error
	Resume() error
}

// NextFunc receives a message after admission
type NextFunc func(ctx context.Context, msg *message.Message) error

// Controller gates outbound messages of one channel
type Controller struct {
	channel   string
	limiter   Limiter
	producer  Producer
	scheduler Scheduler
	delay     time.Duration
	logger    logging.Logger
	metrics   *metrics.Registry

	mu       sync.Mutex
	state    State
	timer    Timer
	closed   bool
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithScheduler replaces the wall-clock scheduler
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithUnpauseCheckDelay sets the poll interval while paused
func WithUnpauseCheckDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Controller) { c.metrics = reg }
}

// New creates a controller for channel. limiter and producer are required.
func New(channel string, limiter Limiter, producer Producer, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		channel:   channel,
		limiter:   limiter,
		producer:  producer,
		scheduler: RealScheduler{},
		delay:     DefaultUnpauseCheckDelay,
		logger:    logging.NewNopLogger(),
		state:     Flowing,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(logging.String("channel", channel))
	return c
}

// Channel returns the name of the gated channel
func (c *Controller) Channel() string {
	return c.channel
}

// State returns whether the producer is currently paused
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleOutbound admits msg against the rate window and passes it to next.
//
// A rejected admission pauses the producer but the message is still passed on:
// its token is already counted in the window. A store failure also pauses the
// producer, and the message is not passed on.
func (c *Controller) HandleOutbound(ctx context.Context, msg *message.Message, next NextFunc) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	admitted, err := c.limiter.Admit(ctx, msg.MessageID)
	if err != nil {
		c.logger.WithContext(logging.ContextWithMessageID(ctx, msg.MessageID)).Error("Admission check failed", err)
		c.pause()
		return err
	}
	if !admitted {
		c.pause()
	}

	return next(logging.ContextWithChannel(ctx, c.channel), msg)
}

func (c *Controller) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state == Paused {
		return
	}

	c.state = Paused
	if err := c.producer.Pause(); err != nil {
		c.logger.Error("Failed to pause producer", err)
	}
	c.metrics.ObservePause(c.channel)
	c.logger.Info("Producer paused", logging.Duration("check_delay", c.delay))

	c.timer = c.scheduler.AfterFunc(c.delay, c.checkUnpause)
}

// checkUnpause runs from the scheduler. The store round-trip happens outside
// the lock; Close waits for it through inflight.
func (c *Controller) checkUnpause() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.inflight.Add(1)
	ctx := c.ctx
	c.mu.Unlock()
	defer c.inflight.Done()

	room, err := c.limiter.HasRoom(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	switch {
	case err != nil:
		c.metrics.ObserveUnpauseCheck(c.channel, metrics.ResultError)
		c.logger.Warn("Unpause check failed, staying paused", logging.Err(err))
	case !room:
		c.metrics.ObserveUnpauseCheck(c.channel, metrics.ResultDenied)
	default:
		c.metrics.ObserveUnpauseCheck(c.channel, metrics.ResultAllowed)
		if err := c.producer.Resume(); err != nil {
			c.logger.Error("Failed to resume producer, retrying", err)
			c.timer = c.scheduler.AfterFunc(c.delay, c.checkUnpause)
			return
		}
		c.state = Flowing
		c.metrics.ObserveResume(c.channel)
		c.logger.Info("Producer resumed")
		return
	}

	c.timer = c.scheduler.AfterFunc(c.delay, c.checkUnpause)
}

// Close cancels any pending unpause check and waits for a running one to
// finish. The producer is left as it is. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
	c.mu.Unlock()

	c.inflight.Wait()
	return nil
}
