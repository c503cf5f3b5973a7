package routing

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/message"
	"message-gateway/internal/metrics"
)

// New builds the router selected by cfg.Type. All rules are validated and
// compiled here; a router that constructs successfully never fails on
// configuration while dispatching.
func New(cfg Config, dispatcher Dispatcher, logger logging.Logger, reg *metrics.Registry) (Router, error) {
	if dispatcher == nil {
		return nil, errors.ConfigError("routing dispatcher is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	err := RunValidators(
		func() error { return ValidateRequired(cfg.Name, "name") },
		func() error { return ValidateNotEmpty(cfg.ExposedNames, "exposed_names") },
	)
	if err != nil {
		return nil, configError(cfg.Name, err)
	}

	b := &baseRouter{
		name:       cfg.Name,
		exposed:    UniqueStrings(cfg.ExposedNames),
		dispatcher: dispatcher,
		logger:     logger.WithFields(logging.String("router", cfg.Name)),
		metrics:    reg,
	}

	var router Router
	switch cfg.Type {
	case TypePriorityKeyword:
		router, err = newPriorityRouter(b, cfg)
	case TypeAddressPattern:
		router, err = newAddressRouter(b, cfg)
	case TypeMetadataPresence:
		router, err = newMetadataRouter(b, cfg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownRouterType, cfg.Type)
	}
	if err != nil {
		return nil, configError(cfg.Name, err)
	}

	b.logger.Info("Router configured",
		logging.String("type", string(cfg.Type)),
		logging.Strings("exposed_names", b.exposed),
	)
	return router, nil
}

// baseRouter carries what every strategy shares: identity, the inbound
// broadcast set and the publish path.
type baseRouter struct {
	name       string
	exposed    []string
	dispatcher Dispatcher
	logger     logging.Logger
	metrics    *metrics.Registry
	endpoints  []string
}

func (b *baseRouter) Name() string {
	return b.name
}

func (b *baseRouter) ExposedNames() []string {
	names := make([]string, len(b.exposed))
	copy(names, b.exposed)
	return names
}

// Endpoints returns every outbound endpoint the rules can select, sorted
func (b *baseRouter) Endpoints() []string {
	endpoints := make([]string, len(b.endpoints))
	copy(endpoints, b.endpoints)
	sort.Strings(endpoints)
	return endpoints
}

func (b *baseRouter) addEndpoints(endpoints ...string) {
	for _, endpoint := range endpoints {
		if endpoint != "" && !SliceContains(b.endpoints, endpoint) {
			b.endpoints = append(b.endpoints, endpoint)
		}
	}
}

func (b *baseRouter) DispatchInbound(ctx context.Context, msg *message.Message) {
	for _, endpoint := range b.exposed {
		b.publish(ctx, message.Inbound, endpoint, msg)
	}
}

func (b *baseRouter) DispatchInboundEvent(ctx context.Context, msg *message.Message) {
	for _, endpoint := range b.exposed {
		b.publish(ctx, message.Event, endpoint, msg)
	}
}

// dispatchOutbound publishes to the endpoints chosen by resolve, or logs and
// drops the message when there are none.
func (b *baseRouter) dispatchOutbound(ctx context.Context, msg *message.Message, resolve func(*message.Message) ([]string, error)) {
	endpoints, err := resolve(msg)
	if err != nil {
		b.drop(ctx, msg, err)
		return
	}
	for _, endpoint := range endpoints {
		b.publish(ctx, message.Outbound, endpoint, msg)
	}
}

func (b *baseRouter) publish(ctx context.Context, direction message.Direction, endpoint string, msg *message.Message) {
	var err error
	switch direction {
	case message.Inbound:
		err = b.dispatcher.PublishInbound(ctx, endpoint, msg)
	case message.Event:
		err = b.dispatcher.PublishInboundEvent(ctx, endpoint, msg)
	default:
		err = b.dispatcher.PublishOutbound(ctx, endpoint, msg)
	}

	b.metrics.ObserveDispatch(b.name, string(direction), endpoint, err)
	logger := b.logger.WithContext(logging.ContextWithMessageID(ctx, msg.MessageID))
	if err != nil {
		logger.Error("Failed to publish message", err,
			logging.String("endpoint", endpoint),
			logging.String("direction", string(direction)),
		)
		return
	}
	logger.Debug("Message dispatched",
		logging.String("endpoint", endpoint),
		logging.String("direction", string(direction)),
	)
}

func (b *baseRouter) drop(ctx context.Context, msg *message.Message, err error) {
	reason := "unknown"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code != "" {
		reason = appErr.Code
	}

	b.metrics.ObserveDrop(b.name, reason)
	b.logger.WithContext(logging.ContextWithMessageID(ctx, msg.MessageID)).Error("Dropping outbound message", err,
		logging.String("reason", reason),
		logging.String("transport_type", msg.TransportType),
	)
}

// noRoute describes why msg has no outbound endpoint
func noRoute(msg *message.Message, code, reason string) error {
	err := errors.NoRouteError(msg.MessageID, reason).WithCode(code)
	err.Cause = ErrNoRoute
	return err
}
