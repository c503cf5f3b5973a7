package routing

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"message-gateway/internal/message"
)

// DefaultPriority is the mandatory entry of every priority mapping
const DefaultPriority = "default"

// Target is where a transport type routes to. It is one of Literal,
// ByAddress or ByPriority.
type Target interface {
	isTarget()
	allEndpoints() []string
}

// AddressTarget is a target that can sit under a sender address
type AddressTarget interface {
	Target
	resolveEndpoint(msg *message.Message) string
}

// Literal routes to a single endpoint
type Literal string

// ByAddress selects a target by the sender address
type ByAddress map[string]AddressTarget

// ByPriority selects an endpoint by the message's priority label
type ByPriority struct {
	Default string
	Labels  map[string]string
}

func (Literal) isTarget()    {}
func (ByAddress) isTarget()  {}
func (ByPriority) isTarget() {}

func (l Literal) allEndpoints() []string {
	return []string{string(l)}
}

func (p ByPriority) allEndpoints() []string {
	endpoints := []string{p.Default}
	for _, endpoint := range p.Labels {
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
}

func (a ByAddress) allEndpoints() []string {
	var endpoints []string
	for _, target := range a {
		endpoints = append(endpoints, target.allEndpoints()...)
	}
	return endpoints
}

func (l Literal) resolveEndpoint(*message.Message) string {
	return string(l)
}

func (p ByPriority) resolveEndpoint(msg *message.Message) string {
	if label, ok := msg.Priority(); ok {
		if endpoint, ok := p.Labels[label]; ok {
			return endpoint
		}
	}
	return p.Default
}

// PriorityRouter routes outbound messages by transport type, then sender
// address, then priority label. It targets exactly one endpoint per message
// and has no fallback.
type PriorityRouter struct {
	*baseRouter
	mappings map[string]Target
}

func newPriorityRouter(b *baseRouter, cfg Config) (*PriorityRouter, error) {
	pairs, err := mappingPairs(&cfg.TransportMappings, "transport_mappings")
	if err != nil {
		return nil, err
	}

	mappings := make(map[string]Target, len(pairs))
	for _, pair := range pairs {
		target, err := decodeTarget(pair)
		if err != nil {
			return nil, err
		}
		mappings[pair.key] = target
		b.addEndpoints(target.allEndpoints()...)
	}
	return &PriorityRouter{baseRouter: b, mappings: mappings}, nil
}

// Resolve picks the single outbound endpoint for msg
func (r *PriorityRouter) Resolve(msg *message.Message) ([]string, error) {
	target, ok := r.mappings[msg.TransportType]
	if !ok {
		return nil, noRoute(msg, ReasonNoTransportMapping,
			fmt.Sprintf("no transport mapping for transport type %q", msg.TransportType))
	}

	switch t := target.(type) {
	case Literal:
		return []string{string(t)}, nil
	case ByPriority:
		return []string{t.resolveEndpoint(msg)}, nil
	case ByAddress:
		addrTarget, ok := t[msg.FromAddr]
		if !ok {
			return nil, noRoute(msg, ReasonNoAddressMapping,
				fmt.Sprintf("no mapping for address %q under transport type %q", msg.FromAddr, msg.TransportType))
		}
		return []string{addrTarget.resolveEndpoint(msg)}, nil
	default:
		return nil, noRoute(msg, ReasonNoTransportMapping, "unsupported target")
	}
}

func (r *PriorityRouter) DispatchOutbound(ctx context.Context, msg *message.Message) {
	r.dispatchOutbound(ctx, msg, r.Resolve)
}

// decodeTarget reads one transport type entry. A mapping whose values are
// all endpoint names and which has a default entry is a priority mapping;
// any other mapping is keyed by sender address.
func decodeTarget(pair nodePair) (Target, error) {
	field := pair.key
	if pair.value == nil {
		return nil, mappingError(field, "is required")
	}
	if pair.value.Kind != yaml.MappingNode {
		endpoint, err := scalarValue(pair.value, field)
		if err != nil {
			return nil, err
		}
		return Literal(endpoint), nil
	}

	entries, err := mappingPairs(pair.value, field)
	if err != nil {
		return nil, err
	}
	if isPriorityMapping(entries) {
		return decodePriority(entries, field)
	}

	byAddress := make(ByAddress, len(entries))
	for _, entry := range entries {
		addrField := field + "." + entry.key
		if entry.value != nil && entry.value.Kind == yaml.MappingNode {
			nested, err := mappingPairs(entry.value, addrField)
			if err != nil {
				return nil, err
			}
			priority, err := decodePriority(nested, addrField)
			if err != nil {
				return nil, err
			}
			byAddress[entry.key] = priority
			continue
		}
		endpoint, err := scalarValue(entry.value, addrField)
		if err != nil {
			return nil, err
		}
		byAddress[entry.key] = Literal(endpoint)
	}
	return byAddress, nil
}

func isPriorityMapping(entries []nodePair) bool {
	hasDefault := false
	for _, entry := range entries {
		if entry.value == nil || entry.value.Kind != yaml.ScalarNode {
			return false
		}
		if entry.key == DefaultPriority {
			hasDefault = true
		}
	}
	return hasDefault
}

func decodePriority(entries []nodePair, field string) (ByPriority, error) {
	p := ByPriority{Labels: make(map[string]string, len(entries))}
	for _, entry := range entries {
		endpoint, err := scalarValue(entry.value, field+"."+entry.key)
		if err != nil {
			return ByPriority{}, err
		}
		if entry.key == DefaultPriority {
			p.Default = endpoint
			continue
		}
		p.Labels[entry.key] = endpoint
	}
	if p.Default == "" {
		return ByPriority{}, fmt.Errorf("%s: %w", field, ErrMissingDefault)
	}
	return p, nil
}
