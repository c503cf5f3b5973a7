package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"message-gateway/internal/app"
	"message-gateway/internal/config"
	"message-gateway/internal/ratelimit"
)

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <channel>",
		Short: "Clear the rate window of a channel",
		Long: `Delete every live token of a channel from the rate window store. A
paused gateway resumes the channel on its next unpause check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, closeStore, err := app.NewStandaloneStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			return runReset(cmd.OutOrStdout(), store, cfg.RoutingConfig, args[0])
		},
	}
}

func runReset(out io.Writer, store ratelimit.Store, path, channel string) error {
	file, err := config.LoadRoutingFile(path)
	if err != nil {
		return err
	}
	channelConfig, ok := file.Channel(channel)
	if !ok {
		return fmt.Errorf("channel %q has no rate window in %s", channel, path)
	}

	limiter, err := ratelimit.NewLimiter(store, channel, channelConfig.Limits())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := limiter.Count(ctx)
	if err != nil {
		return err
	}
	if err := limiter.Reset(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "Cleared %d tokens from %s\n", count, channel)
	return nil
}
