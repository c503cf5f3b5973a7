// Package base provides common infrastructure for broker implementations.
// It holds what the AMQP and Redis Streams brokers share: naming, logging,
// configuration checks and the delivery handling contract.
package base

import (
	"fmt"

	"message-gateway/internal/brokers"
	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
)

// BaseBroker provides common functionality for all broker implementations.
type BaseBroker struct {
	name   string
	logger logging.Logger
	config brokers.BrokerConfig
}

// NewBaseBroker validates config and sets up a logger tagged with the broker
// name and its credential-free connection string.
func NewBaseBroker(name string, config brokers.BrokerConfig, logger logging.Logger) (*BaseBroker, error) {
	if config == nil {
		return nil, errors.ConfigError(fmt.Sprintf("%s config is required", name))
	}
	if err := config.Validate(); err != nil {
		return nil, errors.WrapConfigError(fmt.Sprintf("invalid %s config", name), err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &BaseBroker{
		name:   name,
		config: config,
		logger: logger.WithFields(
			logging.String("broker", name),
			logging.String("connection", config.GetConnectionString()),
		),
	}, nil
}

// Name returns the broker type name.
func (b *BaseBroker) Name() string {
	return b.name
}

// GetLogger returns the configured logger instance.
func (b *BaseBroker) GetLogger() logging.Logger {
	return b.logger
}

// GetConfig returns the broker configuration.
func (b *BaseBroker) GetConfig() brokers.BrokerConfig {
	return b.config
}

// StandardHealthCheck provides a common pattern for health check implementations.
// It checks if the provided client is nil and returns a standardized error.
func StandardHealthCheck(connected bool, brokerType string) error {
	if !connected {
		return errors.ConnectionError(brokerType+" client not initialized", nil)
	}
	return nil
}
