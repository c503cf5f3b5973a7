package brokers

import (
	"sort"
	"sync"

	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
)

type Registry struct {
	factories map[string]BrokerFactory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]BrokerFactory),
	}
}

func (r *Registry) Register(factory BrokerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.GetType()] = factory
}

func (r *Registry) Create(brokerType string, config BrokerConfig, logger logging.Logger) (Broker, error) {
	r.mu.RLock()
	factory, exists := r.factories[brokerType]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.ConfigErrorf("broker type %s not registered", brokerType)
	}

	return factory.Create(config, logger)
}

func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for brokerType := range r.factories {
		types = append(types, brokerType)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) IsRegistered(brokerType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[brokerType]
	return exists
}

// FactoryFunc adapts a typed constructor to BrokerFactory
type FactoryFunc[C BrokerConfig] struct {
	Type string
	New  func(config C, logger logging.Logger) (Broker, error)
}

func (f FactoryFunc[C]) GetType() string {
	return f.Type
}

func (f FactoryFunc[C]) Create(config BrokerConfig, logger logging.Logger) (Broker, error) {
	typed, ok := config.(C)
	if !ok {
		return nil, errors.ConfigErrorf("invalid config type for %s, expected %T but got %T", f.Type, typed, config)
	}
	return f.New(typed, logger)
}
