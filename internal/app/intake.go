package app

import (
	"context"

	"message-gateway/internal/brokers"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/config"
	"message-gateway/internal/flowcontrol"
	"message-gateway/internal/message"
	"message-gateway/internal/ratelimit"
	"message-gateway/internal/routing"
)

// Channel is the outbound intake of one exposed name. Limiter and
// Controller are nil when the routing file gives the name no rate window.
type Channel struct {
	Name       string
	Router     routing.Router
	Config     *config.ChannelConfig
	Limiter    *ratelimit.Limiter
	Controller *flowcontrol.Controller
	Consumer   brokers.Consumer
}

// initializeIntake opens one consumer per queue feeding the routers:
// <exposed>.outbound for every exposed name, and <transport>.inbound and
// <transport>.event for every transport a router can send to.
func (app *App) initializeIntake() error {
	for _, router := range app.Routers {
		for _, name := range router.ExposedNames() {
			if err := app.addChannel(router, name); err != nil {
				return err
			}
		}
	}

	transports := make(map[string][]routing.Router)
	var order []string
	for _, router := range app.Routers {
		for _, endpoint := range router.Endpoints() {
			if _, seen := transports[endpoint]; !seen {
				order = append(order, endpoint)
			}
			transports[endpoint] = append(transports[endpoint], router)
		}
	}

	for _, transport := range order {
		routers := transports[transport]
		if err := app.addConsumer(brokers.RoutingKey(transport, message.Inbound), func(ctx context.Context, msg *message.Message) error {
			for _, router := range routers {
				router.DispatchInbound(ctx, msg)
			}
			return nil
		}); err != nil {
			return err
		}
		if err := app.addConsumer(brokers.RoutingKey(transport, message.Event), func(ctx context.Context, msg *message.Message) error {
			for _, router := range routers {
				router.DispatchInboundEvent(ctx, msg)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) addChannel(router routing.Router, name string) error {
	ch := &Channel{Name: name, Router: router}
	forward := func(ctx context.Context, msg *message.Message) error {
		router.DispatchOutbound(ctx, msg)
		return nil
	}

	handler := func(ctx context.Context, msg *message.Message) error {
		return forward(logging.ContextWithChannel(ctx, name), msg)
	}
	if cfg, ok := app.Routing.Channel(name); ok {
		ch.Config = &cfg
		handler = func(ctx context.Context, msg *message.Message) error {
			return ch.Controller.HandleOutbound(ctx, msg, forward)
		}
	} else {
		app.Logger.Info("Channel has no rate window, forwarding unthrottled",
			logging.String("channel", name),
			logging.String("router", router.Name()),
		)
	}

	consumer, err := app.Broker.NewConsumer(brokers.RoutingKey(name, message.Outbound), handler)
	if err != nil {
		return err
	}
	ch.Consumer = consumer
	app.consumers = append(app.consumers, consumer)

	if ch.Config != nil {
		limiter, err := ratelimit.NewLimiter(app.Store, name, ch.Config.Limits(),
			ratelimit.WithLogger(app.Logger),
			ratelimit.WithMetrics(app.Metrics),
		)
		if err != nil {
			return err
		}
		ch.Limiter = limiter

		opts := []flowcontrol.Option{
			flowcontrol.WithUnpauseCheckDelay(ch.Config.CheckDelay()),
			flowcontrol.WithLogger(app.Logger),
			flowcontrol.WithMetrics(app.Metrics),
		}
		ch.Controller = flowcontrol.New(name, limiter, consumer, append(opts, app.flowOpts...)...)
	}

	app.Intake = append(app.Intake, ch)
	return nil
}

func (app *App) addConsumer(queue string, handler brokers.Handler) error {
	consumer, err := app.Broker.NewConsumer(queue, handler)
	if err != nil {
		return err
	}
	app.consumers = append(app.consumers, consumer)
	return nil
}
