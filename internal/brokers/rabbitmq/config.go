package rabbitmq

import (
	"fmt"
	"net/url"

	"message-gateway/internal/common/validation"
)

// Type is the dispatcher name the AMQP broker registers under
const Type = "amqp"

const (
	DefaultExchange      = "vumi"
	DefaultExchangeType  = "direct"
	DefaultPoolSize      = 5
	DefaultPrefetchCount = 20
)

type Config struct {
	URL           string `json:"url" yaml:"url" validate:"required,url"`
	Exchange      string `json:"exchange" yaml:"exchange" validate:"required"`
	ExchangeType  string `json:"exchange_type" yaml:"exchange_type" validate:"oneof=direct topic"`
	PoolSize      int    `json:"pool_size" yaml:"pool_size" validate:"min=1,max=100"`
	PrefetchCount int    `json:"prefetch_count" yaml:"prefetch_count" validate:"min=0,max=65535"`
}

func (c *Config) Validate() error {
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.ExchangeType == "" {
		c.ExchangeType = DefaultExchangeType
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.PrefetchCount == 0 {
		c.PrefetchCount = DefaultPrefetchCount
	}

	return validation.ValidateStruct(c)
}

func (c *Config) GetConnectionString() string {
	// Credentials never reach the logs
	if parsedURL, err := url.Parse(c.URL); err == nil && parsedURL.Host != "" {
		return fmt.Sprintf("amqp://%s/%s", parsedURL.Host, c.Exchange)
	}
	return "amqp://***"
}

func (c *Config) GetType() string {
	return Type
}
