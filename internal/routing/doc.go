// Package routing decides which endpoints of the message bus receive a
// message passing through the gateway.
//
// # Overview
//
// Every router implements the same Router contract, so the tier that consumes
// from the bus selects a strategy once, at configuration time, and never
// branches on it afterwards:
//
//   - DispatchOutbound publishes an application's message to the endpoint(s)
//     chosen by the strategy
//   - DispatchInbound broadcasts a transport's message to every exposed name
//   - DispatchInboundEvent broadcasts a delivery event the same way
//
// Publishing goes through a Dispatcher supplied by the caller. Dispatch never
// returns an error: a message with no route is logged with its id and the
// reason and then dropped, and publish failures are logged per endpoint.
//
// # Strategies
//
// ## Priority keyword
//
// Looks up the transport type, then optionally the sender address, and ends
// at either a literal endpoint or a priority mapping. A priority mapping reads
// the "priority" label from the transport metadata and falls back to its
// mandatory default entry. Exactly one endpoint is published to. Unknown
// transport types and unknown sender addresses are dropped.
//
// ## Address pattern
//
// Each endpoint lists suffix patterns that are compiled at construction into
// `^\+<country code><suffix>` and matched against the destination address.
// All rules are evaluated; every endpoint with a matching rule receives the
// message. With no match the fallback endpoint is used, if configured.
//
// ## Metadata presence
//
// Each metadata key maps to an endpoint. Every key found anywhere in the
// transport metadata, nested objects included, selects its endpoint. With no
// match the fallback endpoint is used, if configured.
//
// # Configuration
//
// Routers are built from Config values decoded from YAML:
//
//	routers:
//	  - name: sms-priority
//	    type: priority_keyword
//	    exposed_names: [app1]
//	    transport_mappings:
//	      sms:
//	        shortcode1: transport1
//	        shortcode2:
//	          default: transport2
//	          prioritized: transport2-priority
//	      http: transport-http
//
// New validates the whole configuration. Empty endpoint names, priority
// mappings without a default and patterns that do not compile all fail
// construction with a config error; they are never discovered while routing.
//
// Routers are immutable after construction and safe for concurrent use as
// long as the Dispatcher is.
package routing
