package logging

import (
	"fmt"
	"os"
	"time"
)

// NewFromEnv builds the process logger from LOG_LEVEL and LOG_FILE.
// Without LOG_FILE the logger writes to stdout.
func NewFromEnv() (Logger, func() error, error) {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	config := LogConfig{
		Level:      level,
		TimeFormat: time.RFC3339,
	}

	closeFn := func() error { return nil }
	if logFileName := os.Getenv("LOG_FILE"); logFileName != "" {
		file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", logFileName, err)
		}
		config.Output = file
		closeFn = file.Close
	}

	logger, err := NewZapLogger(config)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	sync := func() error {
		if z, ok := logger.(*ZapAdapter); ok {
			_ = z.Sync()
		}
		return closeFn()
	}

	logger.Debug("Logger initialized", String("level", level.String()))
	return logger, sync, nil
}

// Strings creates a string slice field
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
