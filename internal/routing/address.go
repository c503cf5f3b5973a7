package routing

import (
	"context"

	"message-gateway/internal/message"
)

// AddressRouter routes outbound messages by matching the destination address
// against per-endpoint patterns. Every matching endpoint receives the message.
type AddressRouter struct {
	*baseRouter
	countryCode string
	engine      ruleEngine
}

func newAddressRouter(b *baseRouter, cfg Config) (*AddressRouter, error) {
	pairs, err := mappingPairs(&cfg.TransportMappings, "transport_mappings")
	if err != nil {
		return nil, err
	}

	r := &AddressRouter{
		baseRouter:  b,
		countryCode: cfg.CountryCode,
		engine:      ruleEngine{fallback: cfg.TransportFallback},
	}
	for _, pair := range pairs {
		patterns, err := scalarList(pair.value, pair.key)
		if err != nil {
			return nil, err
		}
		for _, suffix := range patterns {
			compiled, err := compileAddressRule(cfg.CountryCode, pair.key, suffix)
			if err != nil {
				return nil, err
			}
			r.engine.rules = append(r.engine.rules, compiled)
		}
		b.addEndpoints(pair.key)
	}
	b.addEndpoints(cfg.TransportFallback)
	return r, nil
}

func (r *AddressRouter) Resolve(msg *message.Message) ([]string, error) {
	return r.engine.evaluate(msg)
}

func (r *AddressRouter) DispatchOutbound(ctx context.Context, msg *message.Message) {
	r.dispatchOutbound(ctx, msg, r.Resolve)
}

// Patterns returns the compiled expressions in evaluation order
func (r *AddressRouter) Patterns() []string {
	patterns := make([]string, len(r.engine.rules))
	for i, compiled := range r.engine.rules {
		patterns[i] = compiled.source
	}
	return patterns
}
