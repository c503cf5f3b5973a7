package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	msg := New(Outbound, "sms", "shortcode2", "+2568181", "hello")

	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, Outbound, msg.Direction)
	assert.NotNil(t, msg.TransportMetadata)
	assert.False(t, msg.Timestamp.IsZero())
	assert.NoError(t, msg.Validate())

	other := New(Outbound, "sms", "a", "b", "c")
	assert.NotEqual(t, msg.MessageID, other.MessageID)
}

func TestMessage_Priority(t *testing.T) {
	t.Run("string label", func(t *testing.T) {
		msg := &Message{TransportMetadata: map[string]interface{}{"priority": "prioritized"}}
		label, ok := msg.Priority()
		assert.True(t, ok)
		assert.Equal(t, "prioritized", label)
	})

	t.Run("numeric label", func(t *testing.T) {
		msg := &Message{TransportMetadata: map[string]interface{}{"priority": 1}}
		label, ok := msg.Priority()
		assert.True(t, ok)
		assert.Equal(t, "1", label)
	})

	t.Run("missing", func(t *testing.T) {
		msg := &Message{}
		_, ok := msg.Priority()
		assert.False(t, ok)
	})

	t.Run("null", func(t *testing.T) {
		msg := &Message{TransportMetadata: map[string]interface{}{"priority": nil}}
		_, ok := msg.Priority()
		assert.False(t, ok)
	})
}

func TestMessage_HasMetadataKey(t *testing.T) {
	msg := &Message{TransportMetadata: map[string]interface{}{
		"session": map[string]interface{}{
			"ussd": map[string]interface{}{"code": "*120#"},
		},
		"priority": "x",
	}}

	assert.True(t, msg.HasMetadataKey("priority"))
	assert.True(t, msg.HasMetadataKey("ussd"))
	assert.True(t, msg.HasMetadataKey("code"))
	assert.False(t, msg.HasMetadataKey("missing"))

	empty := &Message{}
	assert.False(t, empty.HasMetadataKey("priority"))
}

func TestMessage_HasMetadataKeyInArrays(t *testing.T) {
	msg := &Message{TransportMetadata: map[string]interface{}{
		"parts": []interface{}{
			"text",
			map[string]interface{}{"udh": "050003"},
			[]interface{}{map[string]interface{}{"segment": 2}},
		},
		"routes": []map[string]interface{}{{"smsc": "mtn"}},
	}}

	assert.True(t, msg.HasMetadataKey("udh"))
	assert.True(t, msg.HasMetadataKey("segment"))
	assert.True(t, msg.HasMetadataKey("smsc"))
	assert.False(t, msg.HasMetadataKey("text"), "array values are not keys")

	decoded := &Message{}
	require.NoError(t, json.Unmarshal([]byte(`{"transport_metadata":{"parts":[{"priority":"1"}]}}`), decoded))
	assert.True(t, decoded.HasMetadataKey("priority"))
}

func TestEncodeDecode(t *testing.T) {
	msg := New(Event, "http", "a", "b", "ack")
	msg.TransportMetadata["priority"] = "high"

	data, err := msg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message_type":"event"`)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg.MessageID, decoded.MessageID)
	assert.Equal(t, "high", decoded.TransportMetadata["priority"])
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"message_type":"outbound"}`))
	assert.ErrorContains(t, err, "message_id is required")

	_, err = Decode([]byte(`{"message_id":"x","message_type":"sideways"}`))
	assert.ErrorContains(t, err, "unknown message_type")
}
