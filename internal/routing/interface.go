package routing

import (
	"context"

	"gopkg.in/yaml.v3"

	"message-gateway/internal/message"
)

// Type selects a routing strategy
type Type string

const (
	// TypePriorityKeyword routes by transport type, sender address and priority label
	TypePriorityKeyword Type = "priority_keyword"
	// TypeAddressPattern routes by regular expressions over the destination address
	TypeAddressPattern Type = "address_pattern"
	// TypeMetadataPresence routes by which keys are present in the transport metadata
	TypeMetadataPresence Type = "metadata_presence"
)

// Router is the contract shared by every routing strategy. Callers select a
// strategy at configuration time through New and only ever see this interface.
//
// Dispatch methods never return errors. Messages that cannot be routed are
// logged and dropped, and publish failures are logged; neither blocks the
// pipeline feeding the router.
type Router interface {
	// Name returns the configured router name
	Name() string

	// ExposedNames returns the endpoints that receive inbound broadcasts, in order
	ExposedNames() []string

	// Endpoints returns every outbound endpoint the rules can select, sorted.
	// These are the transports whose inbound traffic the router receives.
	Endpoints() []string

	// Resolve returns the outbound endpoints for msg without publishing.
	// The error wraps ErrNoRoute when the message would be dropped.
	Resolve(msg *message.Message) ([]string, error)

	// DispatchOutbound publishes msg to the endpoints selected by the strategy
	DispatchOutbound(ctx context.Context, msg *message.Message)

	// DispatchInbound publishes msg to every exposed endpoint
	DispatchInbound(ctx context.Context, msg *message.Message)

	// DispatchInboundEvent publishes the event to every exposed endpoint
	DispatchInboundEvent(ctx context.Context, msg *message.Message)
}

// Dispatcher hands a message to a named endpoint on the message bus.
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	PublishOutbound(ctx context.Context, endpoint string, msg *message.Message) error
	PublishInbound(ctx context.Context, endpoint string, msg *message.Message) error
	PublishInboundEvent(ctx context.Context, endpoint string, msg *message.Message) error
}

// Config describes one router instance as loaded from the routing file.
//
// The shape of TransportMappings depends on Type:
//
//   - priority_keyword: transport type → endpoint, or transport type →
//     sender address → (endpoint | priority label → endpoint with a "default" entry).
//     A transport type may also map straight to a priority mapping.
//   - address_pattern: endpoint → suffix pattern or list of suffix patterns
//   - metadata_presence: metadata key → endpoint
//
// Mappings are kept as a yaml.Node so the order written in the file is the
// order rules are evaluated in.
type Config struct {
	Name              string    `yaml:"name" json:"name" validate:"required"`                              // Router name, used in logs and metrics
	Type              Type      `yaml:"type" json:"type" validate:"required"`                              // Strategy selector
	ExposedNames      []string  `yaml:"exposed_names" json:"exposed_names" validate:"min=1,dive,required"` // Inbound broadcast endpoints
	CountryCode       string    `yaml:"country_code,omitempty" json:"country_code,omitempty"`              // Dialling code prefixed to address patterns
	TransportFallback string    `yaml:"transport_fallback,omitempty" json:"transport_fallback,omitempty"`  // Endpoint used when no rule matches
	TransportMappings yaml.Node `yaml:"transport_mappings" json:"-" validate:"-"`                          // Strategy-specific rules
}
