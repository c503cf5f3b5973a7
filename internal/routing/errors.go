package routing

import "errors"

var (
	// ErrNoRoute is the cause of every dropped outbound message
	ErrNoRoute = errors.New("no route for message")

	// ErrUnknownRouterType is returned when a config names no known strategy
	ErrUnknownRouterType = errors.New("unknown router type")

	// ErrInvalidMapping is returned when transport mappings have the wrong shape
	ErrInvalidMapping = errors.New("invalid transport mapping")

	// ErrMissingDefault is returned when a priority mapping has no default entry
	ErrMissingDefault = errors.New("priority mapping has no default endpoint")

	// ErrRuleCompilationFailed is returned when an address pattern does not compile
	ErrRuleCompilationFailed = errors.New("rule compilation failed")
)

// Drop reasons, reported as the code of the no-route error
const (
	ReasonNoTransportMapping = "no_transport_mapping"
	ReasonNoAddressMapping   = "no_address_mapping"
	ReasonNoFallback         = "no_fallback"
)
