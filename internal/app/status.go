package app

import (
	"context"

	"message-gateway/internal/handlers"
)

type healthChecker interface {
	Health() error
}

// Channels reports the flow state and live window of every channel
func (app *App) Channels(ctx context.Context) []handlers.ChannelStatus {
	statuses := make([]handlers.ChannelStatus, 0, len(app.Intake))
	for _, ch := range app.Intake {
		status := handlers.ChannelStatus{
			Name:   ch.Name,
			Router: ch.Router.Name(),
			State:  "unthrottled",
		}
		if ch.Controller != nil {
			status.State = ch.Controller.State().String()
			status.WindowSize = ch.Config.WindowSize
			status.PerSeconds = ch.Config.PerSeconds.Duration().Seconds()

			if count, err := ch.Limiter.Count(ctx); err != nil {
				status.Error = err.Error()
			} else {
				status.Tokens = &count
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Health checks the rate window store and the message bus
func (app *App) Health(ctx context.Context) map[string]error {
	components := map[string]error{
		"broker": app.Broker.Health(),
	}
	if checker, ok := app.Store.(healthChecker); ok {
		components["store"] = checker.Health()
	} else {
		components["store"] = nil
	}
	return components
}

var _ handlers.StatusSource = (*App)(nil)
