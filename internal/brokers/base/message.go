package base

import (
	"context"
	"fmt"

	"message-gateway/internal/brokers"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/message"
)

// Outcome tells a consumer what to do with a delivery
type Outcome int

const (
	// Ack removes the delivery from the queue
	Ack Outcome = iota
	// Requeue leaves the delivery for redelivery
	Requeue
	// Reject discards a delivery that can never be processed
	Reject
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// MessageHandler wraps the user-provided handler with decoding and
// standardized error logging.
type MessageHandler struct {
	handler    brokers.Handler
	logger     logging.Logger
	brokerType string
	queue      string
}

// NewMessageHandler creates a wrapped message handler with consistent error logging.
func NewMessageHandler(
	handler brokers.Handler,
	logger logging.Logger,
	brokerType string,
	queue string,
) *MessageHandler {
	return &MessageHandler{
		handler:    handler,
		logger:     logger,
		brokerType: brokerType,
		queue:      queue,
	}
}

// Handle decodes body and runs the handler on it.
func (mh *MessageHandler) Handle(ctx context.Context, body []byte, extraFields ...logging.Field) Outcome {
	fields := []logging.Field{
		logging.String("broker_type", mh.brokerType),
		logging.String("queue", mh.queue),
	}
	fields = append(fields, extraFields...)

	msg, err := message.Decode(body)
	if err != nil {
		mh.logger.Error("Discarding undecodable message", err, fields...)
		return Reject
	}

	ctx = logging.ContextWithMessageID(ctx, msg.MessageID)
	if err := mh.handler(ctx, msg); err != nil {
		fields = append(fields, logging.String("message_id", msg.MessageID))
		mh.logger.Error(fmt.Sprintf("Error handling %s message", mh.brokerType), err, fields...)
		return Requeue
	}
	return Ack
}

// Encode serializes msg for publishing
func Encode(msg *message.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("cannot publish a nil message")
	}
	return msg.Encode()
}
