package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"message-gateway/internal/brokers"
	"message-gateway/internal/message"
)

type published struct {
	direction message.Direction
	endpoint  string
	messageID string
}

// MockBroker keeps consumers in memory and records every publish
type MockBroker struct {
	mu        sync.Mutex
	published []published
	consumers map[string]*MockConsumer
	closed    bool
	healthErr error
}

var _ brokers.Broker = (*MockBroker)(nil)

func NewMockBroker() *MockBroker {
	return &MockBroker{consumers: make(map[string]*MockConsumer)}
}

func (b *MockBroker) record(direction message.Direction, endpoint string, msg *message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{direction: direction, endpoint: endpoint, messageID: msg.MessageID})
	return nil
}

func (b *MockBroker) PublishOutbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.record(message.Outbound, endpoint, msg)
}

func (b *MockBroker) PublishInbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.record(message.Inbound, endpoint, msg)
}

func (b *MockBroker) PublishInboundEvent(ctx context.Context, endpoint string, msg *message.Message) error {
	return b.record(message.Event, endpoint, msg)
}

func (b *MockBroker) Name() string { return "mock" }

func (b *MockBroker) NewConsumer(queue string, handler brokers.Handler) (brokers.Consumer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.consumers[queue]; exists {
		return nil, fmt.Errorf("queue %s already consumed", queue)
	}
	c := &MockConsumer{queue: queue, handler: handler}
	b.consumers[queue] = c
	return c, nil
}

func (b *MockBroker) Health() error { return b.healthErr }

func (b *MockBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *MockBroker) Consumer(queue string) *MockConsumer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumers[queue]
}

func (b *MockBroker) Queues() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	queues := make([]string, 0, len(b.consumers))
	for q := range b.consumers {
		queues = append(queues, q)
	}
	sort.Strings(queues)
	return queues
}

func (b *MockBroker) Endpoints(direction message.Direction) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := []string{}
	for _, p := range b.published {
		if p.direction == direction {
			result = append(result, p.endpoint)
		}
	}
	return result
}

func (b *MockBroker) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// MockConsumer hands deliveries straight to the handler
type MockConsumer struct {
	queue   string
	handler brokers.Handler

	mu      sync.Mutex
	started bool
	stopped bool
	paused  bool
	pauses  int
	resumes int
}

func (c *MockConsumer) Queue() string { return c.queue }

func (c *MockConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *MockConsumer) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	c.pauses++
	return nil
}

func (c *MockConsumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	c.resumes++
	return nil
}

func (c *MockConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	return nil
}

// Deliver runs the handler as a broker would for one delivery
func (c *MockConsumer) Deliver(ctx context.Context, msg *message.Message) error {
	return c.handler(ctx, msg)
}

func (c *MockConsumer) State() (started, paused, stopped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started, c.paused, c.stopped
}

func (c *MockConsumer) Counts() (pauses, resumes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauses, c.resumes
}
