package brokers

import (
	"context"
	"sync"

	"message-gateway/internal/common/logging"
	"message-gateway/internal/message"
)

// Publication is one message handed to a LogDispatcher
type Publication struct {
	Direction message.Direction
	Endpoint  string
	MessageID string
}

// LogDispatcher publishes nowhere. It logs and records each call, which is
// what dry runs of routing configuration need.
type LogDispatcher struct {
	logger logging.Logger

	mu           sync.Mutex
	publications []Publication
}

func NewLogDispatcher(logger logging.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.WithFields(logging.String("dispatcher", "log"))}
}

func (d *LogDispatcher) PublishOutbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return d.record(message.Outbound, endpoint, msg)
}

func (d *LogDispatcher) PublishInbound(ctx context.Context, endpoint string, msg *message.Message) error {
	return d.record(message.Inbound, endpoint, msg)
}

func (d *LogDispatcher) PublishInboundEvent(ctx context.Context, endpoint string, msg *message.Message) error {
	return d.record(message.Event, endpoint, msg)
}

// Publications returns every recorded call in order
func (d *LogDispatcher) Publications() []Publication {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Publication(nil), d.publications...)
}

func (d *LogDispatcher) record(direction message.Direction, endpoint string, msg *message.Message) error {
	d.mu.Lock()
	d.publications = append(d.publications, Publication{Direction: direction, Endpoint: endpoint, MessageID: msg.MessageID})
	d.mu.Unlock()

	d.logger.Info("Would publish message",
		logging.String("routing_key", RoutingKey(endpoint, direction)),
		logging.String("message_id", msg.MessageID),
	)
	return nil
}
