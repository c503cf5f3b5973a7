// Package app wires the gateway together: rate window store, message bus,
// routers, flow controllers and the intake consumers that feed them.
package app

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"message-gateway/internal/brokers"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/config"
	"message-gateway/internal/flowcontrol"
	"message-gateway/internal/metrics"
	"message-gateway/internal/ratelimit"
	"message-gateway/internal/redis"
	"message-gateway/internal/routing"
)

// Version is reported by the status endpoints
const Version = "1.0.0"

// App holds all the application dependencies
type App struct {
	Config   *config.Config
	Routing  *config.RoutingFile
	Logger   logging.Logger
	Metrics  *metrics.Registry
	Gatherer prometheus.Gatherer

	Store       ratelimit.Store
	RedisClient *redis.Client
	Broker      brokers.Broker
	Routers     []routing.Router
	Intake      []*Channel

	consumers []brokers.Consumer
	flowOpts  []flowcontrol.Option
	closeOnce sync.Once
}

// Option overrides a dependency, mostly for tests
type Option func(*App)

// WithStore uses store instead of connecting to the configured one
func WithStore(store ratelimit.Store) Option {
	return func(app *App) { app.Store = store }
}

// WithBroker uses broker instead of connecting to the configured one
func WithBroker(broker brokers.Broker) Option {
	return func(app *App) { app.Broker = broker }
}

// WithFlowOptions passes extra options to every flow controller
func WithFlowOptions(opts ...flowcontrol.Option) Option {
	return func(app *App) { app.flowOpts = append(app.flowOpts, opts...) }
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config, file *config.RoutingFile, logger logging.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:   cfg,
		Routing:  file,
		Logger:   logger.WithFields(logging.String("component", "app")),
		Metrics:  metrics.NewRegistry(promRegistry),
		Gatherer: promRegistry,
	}
	for _, opt := range opts {
		opt(app)
	}

	// Initialize components in order of dependency
	steps := []func() error{
		app.initializeStore,
		app.initializeBroker,
		app.initializeRouters,
		app.initializeIntake,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			app.Cleanup()
			return nil, err
		}
	}

	app.Logger.Info("Gateway configured",
		logging.Int("routers", len(app.Routers)),
		logging.Int("channels", len(app.Intake)),
		logging.Int("consumers", len(app.consumers)),
		logging.String("store", cfg.Store),
		logging.String("dispatcher", app.Broker.Name()),
	)
	return app, nil
}

func (app *App) initializeRouters() error {
	for _, cfg := range app.Routing.Routers {
		router, err := routing.New(cfg, app.Broker, app.Logger, app.Metrics)
		if err != nil {
			return err
		}
		app.Routers = append(app.Routers, router)
	}
	return nil
}

// Start begins consuming every intake queue
func (app *App) Start(ctx context.Context) error {
	for _, consumer := range app.consumers {
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}
	app.Logger.Info("Gateway started")
	return nil
}

// Shutdown stops the gateway. Flow controllers go first so no pending
// unpause check touches a stopped consumer, then the consumers, then the
// connections.
func (app *App) Shutdown(ctx context.Context) error {
	var errs []error

	for _, ch := range app.Intake {
		if ch.Controller != nil {
			errs = append(errs, ch.Controller.Close())
		}
	}

	stopped := make(chan []error, 1)
	go func() {
		var stopErrs []error
		for _, consumer := range app.consumers {
			if err := consumer.Stop(); err != nil {
				app.Logger.Warn("Error stopping consumer",
					logging.String("queue", consumer.Queue()),
					logging.Err(err),
				)
				stopErrs = append(stopErrs, err)
			}
		}
		stopped <- stopErrs
	}()

	select {
	case stopErrs := <-stopped:
		errs = append(errs, stopErrs...)
	case <-ctx.Done():
		app.Logger.Warn("Shutdown deadline reached before all consumers stopped")
		return stderrors.Join(append(errs, ctx.Err())...)
	}

	app.Cleanup()
	app.Logger.Info("Gateway stopped")
	return stderrors.Join(errs...)
}

// Cleanup releases all connections. Only the first call has any effect.
func (app *App) Cleanup() {
	app.closeOnce.Do(app.closeConnections)
}

func (app *App) closeConnections() {
	if app.Broker != nil {
		if err := app.Broker.Close(); err != nil {
			app.Logger.Warn("Error closing broker", logging.Err(err))
		}
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Logger.Warn("Error closing Redis", logging.Err(err))
		}
	}
}
