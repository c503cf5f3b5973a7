package routing

import (
	"context"

	"message-gateway/internal/message"
)

// MetadataRouter routes outbound messages by which keys appear in the
// transport metadata, at any depth.
type MetadataRouter struct {
	*baseRouter
	engine ruleEngine
}

func newMetadataRouter(b *baseRouter, cfg Config) (*MetadataRouter, error) {
	pairs, err := mappingPairs(&cfg.TransportMappings, "transport_mappings")
	if err != nil {
		return nil, err
	}

	r := &MetadataRouter{
		baseRouter: b,
		engine:     ruleEngine{fallback: cfg.TransportFallback},
	}
	for _, pair := range pairs {
		endpoint, err := scalarValue(pair.value, pair.key)
		if err != nil {
			return nil, err
		}
		r.engine.rules = append(r.engine.rules, metadataRule(pair.key, endpoint))
		b.addEndpoints(endpoint)
	}
	b.addEndpoints(cfg.TransportFallback)
	return r, nil
}

func (r *MetadataRouter) Resolve(msg *message.Message) ([]string, error) {
	return r.engine.evaluate(msg)
}

func (r *MetadataRouter) DispatchOutbound(ctx context.Context, msg *message.Message) {
	r.dispatchOutbound(ctx, msg, r.Resolve)
}
