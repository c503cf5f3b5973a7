package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"message-gateway/internal/common/logging"
)

const connectionWaitTimeout = 5 * time.Second

// Connection is one AMQP connection that channels are opened on
type Connection interface {
	Channel() (ClientInterface, error)
	IsClosed() bool
	Close() error
}

// DialFunc opens a Connection to url
type DialFunc func(url string) (Connection, error)

// ConnectionPool keeps a fixed set of AMQP connections. A Client borrows a
// connection only long enough to open its own channel on it, so any number
// of consumers and publishers share maxSize connections.
type ConnectionPool struct {
	url         string
	maxSize     int
	dial        DialFunc
	connections chan Connection
	mu          sync.RWMutex
	closed      bool
	logger      logging.Logger
}

// Client is one AMQP channel. Closing it leaves the connection open.
type Client struct {
	ch *amqp.Channel
}

type amqpConnection struct {
	conn *amqp.Connection
}

func dialAMQP(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

func (c *amqpConnection) Channel() (ClientInterface, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &Client{ch: ch}, nil
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

func NewConnectionPool(url string, maxSize int, logger logging.Logger) (*ConnectionPool, error) {
	return NewConnectionPoolWithDialer(url, maxSize, dialAMQP, logger)
}

// NewConnectionPoolWithDialer creates a pool whose connections come from dial
func NewConnectionPoolWithDialer(url string, maxSize int, dial DialFunc, logger logging.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxSize < 1 {
		maxSize = 1
	}

	pool := &ConnectionPool{
		url:         url,
		maxSize:     maxSize,
		dial:        dial,
		connections: make(chan Connection, maxSize),
		logger:      logger.WithFields(logging.String("component", "amqp_pool")),
	}

	for i := 0; i < maxSize; i++ {
		conn, err := dial(url)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create initial AMQP connection: %w", err)
		}
		pool.connections <- conn
	}

	pool.logger.Debug("AMQP connection pool ready", logging.Int("size", maxSize))
	return pool, nil
}

func (p *ConnectionPool) GetConnection() (Connection, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("connection pool is closed")
	}
	p.mu.RUnlock()

	select {
	case conn, ok := <-p.connections:
		if !ok {
			return nil, fmt.Errorf("connection pool is closed")
		}
		if conn.IsClosed() {
			p.logger.Warn("Replacing closed AMQP connection")
			newConn, err := p.dial(p.url)
			if err != nil {
				// Keep the slot so a later call can retry the dial
				p.ReturnConnection(conn)
				return nil, fmt.Errorf("failed to create new AMQP connection: %w", err)
			}
			return newConn, nil
		}
		return conn, nil
	case <-time.After(connectionWaitTimeout):
		return nil, fmt.Errorf("timeout waiting for connection from pool")
	}
}

// ReturnConnection puts conn back. A closed connection keeps its slot and is
// redialled by the next GetConnection.
func (p *ConnectionPool) ReturnConnection(conn Connection) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		_ = conn.Close()
		return
	}

	select {
	case p.connections <- conn:
	default:
		_ = conn.Close()
	}
}

// Available returns the number of connections currently in the pool
func (p *ConnectionPool) Available() int {
	return len(p.connections)
}

func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	close(p.connections)
	for conn := range p.connections {
		_ = conn.Close()
	}
}

// NewClient opens a channel on a pooled connection and returns the
// connection to the pool right away.
func (p *ConnectionPool) NewClient() (ClientInterface, error) {
	conn, err := p.GetConnection()
	if err != nil {
		return nil, err
	}
	defer p.ReturnConnection(conn)

	client, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return client, nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
}

func (c *Client) Publish(exchange, routingKey string, mandatory, immediate bool, msg amqp.Publishing) error {
	return c.ch.Publish(exchange, routingKey, mandatory, immediate, msg)
}

func (c *Client) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return c.ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

func (c *Client) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return c.ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *Client) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return c.ch.QueueBind(name, key, exchange, noWait, args)
}

// Consume starts consuming messages from a queue
func (c *Client) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
}

// Cancel stops deliveries to consumer. Deliveries already in flight are
// still handed out before the delivery channel closes.
func (c *Client) Cancel(consumer string, noWait bool) error {
	return c.ch.Cancel(consumer, noWait)
}

func (c *Client) Qos(prefetchCount, prefetchSize int, global bool) error {
	return c.ch.Qos(prefetchCount, prefetchSize, global)
}

// declareBoundQueue makes sure queue exists and receives routingKey from exchange
func declareBoundQueue(client ClientInterface, exchange, queue string) error {
	if _, err := client.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := client.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", queue, exchange, err)
	}
	return nil
}
