package brokers

import (
	"context"
	"fmt"

	"message-gateway/internal/common/logging"
	"message-gateway/internal/message"
	"message-gateway/internal/routing"
)

// Broker is a message bus connection. It publishes for routers and opens
// consumers for the gateway's intake queues.
type Broker interface {
	routing.Dispatcher

	Name() string
	// NewConsumer prepares a consumer of queue. Deliveries are decoded and
	// passed to handler once the consumer is started.
	NewConsumer(queue string, handler Handler) (Consumer, error)
	Health() error
	Close() error
}

type BrokerConfig interface {
	Validate() error
	GetConnectionString() string
	GetType() string
}

// Handler processes one decoded message. A returned error leaves the
// message on the bus for redelivery.
type Handler func(ctx context.Context, msg *message.Message) error

// Consumer delivers messages from one queue. Pause and Resume make it usable
// as the producer side of flow control.
type Consumer interface {
	Queue() string
	Start(ctx context.Context) error
	Pause() error
	Resume() error
	Stop() error
}

type BrokerFactory interface {
	Create(config BrokerConfig, logger logging.Logger) (Broker, error)
	GetType() string
}

// RoutingKey names the queue an endpoint receives messages of direction on,
// e.g. "transport1.outbound" or "app1.event".
func RoutingKey(endpoint string, direction message.Direction) string {
	return fmt.Sprintf("%s.%s", endpoint, direction)
}
