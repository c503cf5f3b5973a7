// Package ratelimit gates outbound traffic per channel against a sliding
// window of short-lived tokens kept in a shared Store.
//
// Admission is advisory. Admit always records the token, even when it reports
// that the window is full, and the room check and the token write are two
// separate store round-trips. Concurrent callers on the same channel can
// therefore push the live window past WindowSize. Callers are expected to
// stop submitting work when Admit returns false.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/logging"
	"message-gateway/internal/metrics"
)

// KeyPrefix namespaces every token key in the store
const KeyPrefix = "rate_limit"

// Config holds the window settings of one channel
type Config struct {
	// WindowSize is the number of tokens allowed to be live at once
	WindowSize int `json:"window_size" yaml:"window_size"`
	// PerSeconds is the time-to-live of each token
	PerSeconds time.Duration `json:"per_seconds" yaml:"per_seconds"`
}

// Validate checks the window settings
func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return errors.ConfigErrorf("window_size must be at least 1, got %d", c.WindowSize)
	}
	if c.PerSeconds <= 0 {
		return errors.ConfigErrorf("per_seconds must be positive, got %v", c.PerSeconds)
	}
	return nil
}

// Limiter is the admission controller for a single channel
type Limiter struct {
	store   Store
	channel string
	config  Config
	prefix  string
	pattern string
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Limiter
type Option func(*Limiter)

// WithLogger sets the limiter's logger
func WithLogger(logger logging.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithMetrics sets the registry admissions are reported to
func WithMetrics(reg *metrics.Registry) Option {
	return func(l *Limiter) { l.metrics = reg }
}

// NewLimiter creates a limiter for channel backed by store
func NewLimiter(store Store, channel string, config Config, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.ConfigError("rate window store is required")
	}
	if channel == "" {
		return nil, errors.ConfigError("channel name is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		store:   store,
		channel: channel,
		config:  config,
		prefix:  fmt.Sprintf("%s:%s:", KeyPrefix, channel),
		pattern: fmt.Sprintf("%s:%s:*", KeyPrefix, escapeGlob(channel)),
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithFields(logging.String("channel", channel))

	return l, nil
}

// Channel returns the channel name
func (l *Limiter) Channel() string {
	return l.channel
}

// Config returns the window settings
func (l *Limiter) Config() Config {
	return l.config
}

// Count returns the number of live tokens in the window
func (l *Limiter) Count(ctx context.Context) (int, error) {
	keys, err := l.store.KeysMatching(ctx, l.pattern)
	if err != nil {
		return 0, errors.StoreUnavailableError("count", err).WithContext("channel", l.channel)
	}
	l.metrics.ObserveWindow(l.channel, len(keys))
	return len(keys), nil
}

// HasRoom reports whether fewer than WindowSize tokens are live
func (l *Limiter) HasRoom(ctx context.Context) (bool, error) {
	count, err := l.Count(ctx)
	if err != nil {
		return false, err
	}
	return count < l.config.WindowSize, nil
}

// Admit checks for room and then records tokenID in the window regardless of
// the outcome. The returned verdict is the room check taken before the write.
func (l *Limiter) Admit(ctx context.Context, tokenID string) (bool, error) {
	room, err := l.HasRoom(ctx)
	if err != nil {
		l.metrics.ObserveAdmission(l.channel, metrics.ResultError)
		return false, err
	}

	value := time.Now().UTC().Format(time.RFC3339Nano)
	if err := l.store.SetWithExpiry(ctx, l.prefix+tokenID, value, l.config.PerSeconds); err != nil {
		l.metrics.ObserveAdmission(l.channel, metrics.ResultError)
		return false, errors.StoreUnavailableError("admit", err).WithContext("channel", l.channel)
	}

	if room {
		l.metrics.ObserveAdmission(l.channel, metrics.ResultAllowed)
	} else {
		l.metrics.ObserveAdmission(l.channel, metrics.ResultDenied)
		l.logger.Debug("Window full, token recorded anyway",
			logging.String("token", tokenID),
			logging.Int("window_size", l.config.WindowSize),
		)
	}
	return room, nil
}

// Reset deletes every token of the channel. Administrative and test use only.
func (l *Limiter) Reset(ctx context.Context) error {
	keys, err := l.store.KeysMatching(ctx, l.pattern)
	if err != nil {
		return errors.StoreUnavailableError("reset", err).WithContext("channel", l.channel)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		return errors.StoreUnavailableError("reset", err).WithContext("channel", l.channel)
	}
	l.logger.Info("Rate window reset", logging.Int("tokens", len(keys)))
	return nil
}
