package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"message-gateway/internal/brokers"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/config"
	"message-gateway/internal/message"
	"message-gateway/internal/routing"
)

func newRouteCommand() *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "route [message.json]",
		Short: "Show where a message would be published",
		Long: `Route a message through the routing file without touching the message
bus. The message is read from the given file, or from stdin when no file
is given. Outbound messages go through the router exposing --channel, or
every router when --channel is empty.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runRoute(cmd.OutOrStdout(), in, loadConfig().RoutingConfig, channel)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Exposed name the message arrived from")
	return cmd
}

func runRoute(out io.Writer, in io.Reader, path, channel string) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	msg, err := message.Decode(data)
	if err != nil {
		return err
	}

	file, err := config.LoadRoutingFile(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	matched := false

	for _, cfg := range file.Routers {
		if channel != "" && !routing.SliceContains(cfg.ExposedNames, channel) {
			continue
		}
		matched = true

		dispatcher := brokers.NewLogDispatcher(logging.NewNopLogger())
		router, err := routing.New(cfg, dispatcher, nil, nil)
		if err != nil {
			return err
		}

		switch msg.Direction {
		case message.Outbound:
			if _, err := router.Resolve(msg); err != nil {
				if !stderrors.Is(err, routing.ErrNoRoute) {
					return err
				}
				fmt.Fprintf(out, "%s: dropped: %v\n", router.Name(), err)
				continue
			}
			router.DispatchOutbound(ctx, msg)
		case message.Inbound:
			router.DispatchInbound(ctx, msg)
		case message.Event:
			router.DispatchInboundEvent(ctx, msg)
		}

		for _, p := range dispatcher.Publications() {
			fmt.Fprintf(out, "%s: %s\n", router.Name(), brokers.RoutingKey(p.Endpoint, p.Direction))
		}
	}

	if !matched {
		return fmt.Errorf("no router exposes channel %q", channel)
	}
	return nil
}
