// Package message defines the envelope that flows through the gateway's
// routing and flow-control core. Messages are created by the transport layer
// and are only read, never modified, while they are being routed.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction tells which way a message travels relative to the gateway.
type Direction string

const (
	// Inbound messages come from a transport and go to applications
	Inbound Direction = "inbound"
	// Outbound messages come from applications and go to a transport
	Outbound Direction = "outbound"
	// Event messages are delivery reports and acknowledgements from a transport
	Event Direction = "event"
)

// PriorityKey is the transport metadata key read by priority routing.
const PriorityKey = "priority"

// Message is the envelope exchanged with the message bus.
type Message struct {
	MessageID         string                 `json:"message_id"`
	Direction         Direction              `json:"message_type"`
	TransportType     string                 `json:"transport_type"`
	FromAddr          string                 `json:"from_addr"`
	ToAddr            string                 `json:"to_addr"`
	Content           string                 `json:"content"`
	TransportMetadata map[string]interface{} `json:"transport_metadata,omitempty"`
	Timestamp         time.Time              `json:"timestamp"`
}

// New creates a message with a fresh id and the current time.
func New(direction Direction, transportType, from, to, content string) *Message {
	return &Message{
		MessageID:         uuid.NewString(),
		Direction:         direction,
		TransportType:     transportType,
		FromAddr:          from,
		ToAddr:            to,
		Content:           content,
		TransportMetadata: make(map[string]interface{}),
		Timestamp:         time.Now().UTC(),
	}
}

// Priority returns the priority label carried in the transport metadata.
func (m *Message) Priority() (string, bool) {
	value, ok := m.TransportMetadata[PriorityKey]
	if !ok || value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// HasMetadataKey reports whether key is present anywhere in the transport
// metadata, including inside nested objects and arrays of objects.
func (m *Message) HasMetadataKey(key string) bool {
	return containsKey(m.TransportMetadata, key)
}

func containsKey(values map[string]interface{}, key string) bool {
	if _, ok := values[key]; ok {
		return true
	}
	for _, value := range values {
		if nestedContainsKey(value, key) {
			return true
		}
	}
	return false
}

// nestedContainsKey looks for key inside a metadata value. Scalars never match.
func nestedContainsKey(value interface{}, key string) bool {
	switch nested := value.(type) {
	case map[string]interface{}:
		return containsKey(nested, key)
	case map[string]string:
		_, ok := nested[key]
		return ok
	case []interface{}:
		for _, item := range nested {
			if nestedContainsKey(item, key) {
				return true
			}
		}
	case []map[string]interface{}:
		for _, item := range nested {
			if containsKey(item, key) {
				return true
			}
		}
	}
	return false
}

// Validate checks the fields every component relies on.
func (m *Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message_id is required")
	}
	switch m.Direction {
	case Inbound, Outbound, Event:
		return nil
	default:
		return fmt.Errorf("unknown message_type %q", m.Direction)
	}
}

// Encode serializes the message for the wire.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message %s: %w", m.MessageID, err)
	}
	return data, nil
}

// Decode parses and validates a wire message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
