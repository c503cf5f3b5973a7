package main

import (
	"context"

	"github.com/spf13/cobra"

	"message-gateway/internal/app"
	"message-gateway/internal/config"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Long: `Run the gateway: consume every intake queue named by the routing file,
dispatch through the routers and serve /health, /channels and /metrics.
Settings come from the environment and an optional .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, sync, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = sync() }()

			cfg := loadConfig()
			return app.Run(context.Background(), cfg, logger)
		},
	}
}

func loadConfig() *config.Config {
	cfg := config.Load()
	if routingPath != "" {
		cfg.RoutingConfig = routingPath
	}
	return cfg
}
