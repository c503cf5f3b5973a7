// Command gateway runs the message gateway and its operator tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"message-gateway/internal/common/logging"
)

var (
	// Global flags
	routingPath string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Message gateway routing and flow control",
		Long: `gateway routes messages between applications and transports over a
message bus and throttles each application's outbound queue against a
shared rate window.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&routingPath, "routing", "", "Routing file (overrides ROUTING_CONFIG)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newRouteCommand())
	rootCmd.AddCommand(newResetCommand())

	return rootCmd
}

func newLogger() (logging.Logger, func() error, error) {
	logger, sync, err := logging.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return logger, sync, nil
}
