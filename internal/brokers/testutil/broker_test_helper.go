// Package testutil provides common testing utilities for broker implementations.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-gateway/internal/brokers"
	"message-gateway/internal/message"
)

// TestConfig is used to test broker configurations
type TestConfig struct {
	Name          string
	Config        brokers.BrokerConfig
	ExpectError   bool
	ErrorContains string
}

// RunConfigValidationTests runs standard configuration validation tests
func RunConfigValidationTests(t *testing.T, configs []TestConfig) {
	for _, tc := range configs {
		t.Run(tc.Name, func(t *testing.T) {
			err := tc.Config.Validate()
			if tc.ExpectError {
				assert.Error(t, err)
				if tc.ErrorContains != "" {
					assert.Contains(t, err.Error(), tc.ErrorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// CreateTestMessage creates an SMS message carrying metadata
func CreateTestMessage(direction message.Direction, to string, metadata map[string]interface{}) *message.Message {
	msg := message.New(direction, "sms", "+27820000000", to, "test content")
	for k, v := range metadata {
		msg.TransportMetadata[k] = v
	}
	return msg
}

// FetchFunc returns the messages a broker has put on routingKey so far
type FetchFunc func(t *testing.T, routingKey string) []*message.Message

// RunDispatcherTests checks that broker publishes each direction to the
// endpoint's own routing key and that the message survives the trip.
func RunDispatcherTests(t *testing.T, broker brokers.Broker, fetch FetchFunc) {
	ctx := context.Background()

	publishers := []struct {
		direction message.Direction
		publish   func(context.Context, string, *message.Message) error
	}{
		{message.Outbound, broker.PublishOutbound},
		{message.Inbound, broker.PublishInbound},
		{message.Event, broker.PublishInboundEvent},
	}

	for _, p := range publishers {
		t.Run(string(p.direction), func(t *testing.T) {
			msg := CreateTestMessage(p.direction, "+27831234567", map[string]interface{}{
				"priority": "high",
				"nested":   map[string]interface{}{"campaign": "c1"},
			})
			endpoint := "conformance-" + string(p.direction)

			require.NoError(t, p.publish(ctx, endpoint, msg))

			got := fetch(t, brokers.RoutingKey(endpoint, p.direction))
			require.Len(t, got, 1)
			assert.Equal(t, msg.MessageID, got[0].MessageID)
			assert.Equal(t, msg.Direction, got[0].Direction)
			assert.Equal(t, msg.ToAddr, got[0].ToAddr)
			assert.Equal(t, "high", got[0].TransportMetadata["priority"])
			assert.True(t, got[0].HasMetadataKey("campaign"))
		})
	}
}
