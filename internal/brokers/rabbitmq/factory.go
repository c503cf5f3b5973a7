package rabbitmq

import (
	"message-gateway/internal/brokers"
	"message-gateway/internal/common/logging"
)

// GetFactory returns the AMQP broker factory
func GetFactory() brokers.BrokerFactory {
	return brokers.FactoryFunc[*Config]{
		Type: Type,
		New: func(config *Config, logger logging.Logger) (brokers.Broker, error) {
			return NewBroker(config, logger)
		},
	}
}
