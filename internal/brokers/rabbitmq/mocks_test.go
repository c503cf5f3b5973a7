package rabbitmq_test

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"message-gateway/internal/brokers/rabbitmq"
)

// MockConnectionPool implements ConnectionPoolInterface for testing
type MockConnectionPool struct {
	clients        []*MockClient
	closed         bool
	newClientError error
	mu             sync.Mutex
}

func NewMockConnectionPool() *MockConnectionPool {
	return &MockConnectionPool{}
}

func (m *MockConnectionPool) NewClient() (rabbitmq.ClientInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("connection pool is closed")
	}
	if m.newClientError != nil {
		return nil, m.newClientError
	}

	client := NewMockClient()
	m.clients = append(m.clients, client)
	return client, nil
}

func (m *MockConnectionPool) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *MockConnectionPool) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockConnectionPool) SetNewClientError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newClientError = err
}

func (m *MockConnectionPool) GetClients() []*MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockClient(nil), m.clients...)
}

// LastClient returns the most recently opened client
func (m *MockConnectionPool) LastClient() *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.clients) == 0 {
		return nil
	}
	return m.clients[len(m.clients)-1]
}

// Published collects publishings across every client the pool handed out
func (m *MockConnectionPool) Published() []PublishedMessage {
	var out []PublishedMessage
	for _, c := range m.GetClients() {
		out = append(out, c.GetPublishedMessages()...)
	}
	return out
}

// BoundQueues collects bindings across every client the pool handed out
func (m *MockConnectionPool) BoundQueues() []BoundQueue {
	var out []BoundQueue
	for _, c := range m.GetClients() {
		out = append(out, c.GetBoundQueues()...)
	}
	return out
}

// MockClient implements ClientInterface for testing
type MockClient struct {
	closed               bool
	publishError         error
	queueDeclareError    error
	exchangeDeclareError error
	consumeError         error

	publishedMessages []PublishedMessage
	declaredQueues    []string
	declaredExchanges []DeclaredExchange
	boundQueues       []BoundQueue
	consumers         map[string]chan amqp.Delivery
	consumeCalls      []string
	cancelled         []string
	activeTag         string
	prefetch          int
	mu                sync.Mutex
}

type PublishedMessage struct {
	Exchange   string
	RoutingKey string
	Publishing amqp.Publishing
}

type DeclaredExchange struct {
	Name    string
	Kind    string
	Durable bool
}

type BoundQueue struct {
	Name     string
	Key      string
	Exchange string
}

func NewMockClient() *MockClient {
	return &MockClient{
		consumers: make(map[string]chan amqp.Delivery),
	}
}

func (m *MockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for tag, ch := range m.consumers {
		close(ch)
		delete(m.consumers, tag)
	}
}

func (m *MockClient) Publish(exchange, routingKey string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("client is closed")
	}
	if m.publishError != nil {
		return m.publishError
	}

	m.publishedMessages = append(m.publishedMessages, PublishedMessage{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Publishing: msg,
	})
	return nil
}

func (m *MockClient) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return amqp.Queue{}, fmt.Errorf("client is closed")
	}
	if m.queueDeclareError != nil {
		return amqp.Queue{}, m.queueDeclareError
	}

	m.declaredQueues = append(m.declaredQueues, name)
	return amqp.Queue{Name: name}, nil
}

func (m *MockClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("client is closed")
	}
	if m.exchangeDeclareError != nil {
		return m.exchangeDeclareError
	}

	m.declaredExchanges = append(m.declaredExchanges, DeclaredExchange{Name: name, Kind: kind, Durable: durable})
	return nil
}

func (m *MockClient) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("client is closed")
	}

	m.boundQueues = append(m.boundQueues, BoundQueue{Name: name, Key: key, Exchange: exchange})
	return nil
}

func (m *MockClient) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("client is closed")
	}
	if m.consumeError != nil {
		return nil, m.consumeError
	}

	ch := make(chan amqp.Delivery, 16)
	m.consumers[consumer] = ch
	m.consumeCalls = append(m.consumeCalls, consumer)
	m.activeTag = consumer
	return ch, nil
}

func (m *MockClient) Cancel(consumer string, noWait bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelled = append(m.cancelled, consumer)
	if ch, ok := m.consumers[consumer]; ok {
		close(ch)
		delete(m.consumers, consumer)
	}
	if m.activeTag == consumer {
		m.activeTag = ""
	}
	return nil
}

func (m *MockClient) Qos(prefetchCount, prefetchSize int, global bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefetch = prefetchCount
	return nil
}

// Deliver hands d to the active consumer. It reports false when no
// consumer is registered.
func (m *MockClient) Deliver(d amqp.Delivery) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.consumers[m.activeTag]
	if !ok {
		return false
	}
	ch <- d
	return true
}

func (m *MockClient) GetPublishedMessages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.publishedMessages...)
}

func (m *MockClient) GetDeclaredQueues() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.declaredQueues...)
}

func (m *MockClient) GetDeclaredExchanges() []DeclaredExchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeclaredExchange(nil), m.declaredExchanges...)
}

func (m *MockClient) GetBoundQueues() []BoundQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BoundQueue(nil), m.boundQueues...)
}

func (m *MockClient) GetConsumeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.consumeCalls...)
}

func (m *MockClient) GetCancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

func (m *MockClient) Prefetch() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefetch
}

func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockClient) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

func (m *MockClient) SetExchangeDeclareError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeDeclareError = err
}

func (m *MockClient) SetConsumeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumeError = err
}

// MockAcknowledger records how deliveries were settled
type MockAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	requeued []uint64
	rejected []uint64
}

func (a *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued = append(a.requeued, tag)
	} else {
		a.rejected = append(a.rejected, tag)
	}
	return nil
}

func (a *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *MockAcknowledger) Counts() (acked, requeued, rejected int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.requeued), len(a.rejected)
}
