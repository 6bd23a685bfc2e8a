// Package bus carries alerts and activity entries over Redis Streams
// so a trigger issued from one process shows up in a running console.
// When Redis is unreachable the console degrades to a NullBus and
// everything stays in-process.
package bus

import (
	"context"
	"io"
	"log"
)

// Bus defines the interface for alert bus implementations
type Bus interface {
	// PublishAlert publishes an alert to the alerts stream
	PublishAlert(ctx context.Context, msg AlertMessage) error

	// PublishActivity publishes an activity entry to the activity stream
	PublishActivity(ctx context.Context, msg ActivityMessage) error

	// ReadAlertStream reads from the alerts stream via a consumer group
	ReadAlertStream(ctx context.Context, group, consumer string, handler func(ctx context.Context, msg AlertMessage) error) error

	// GetStats returns basic statistics about the bus
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// HealthCheck performs a health check on the bus connection
	HealthCheck(ctx context.Context) error

	// Close closes the bus connection
	Close() error
}

// NewBus creates a new bus instance based on the Redis URL
// If redisURL is empty or invalid, returns a NullBus
func NewBus(redisURL string, logger *log.Logger) Bus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if redisURL == "" {
		return NewNullBus(logger)
	}

	// Try to create Redis bus
	if redisBus, err := NewRedisBus(redisURL, logger); err == nil {
		return redisBus
	}

	// Fall back to null bus if Redis fails
	return NewNullBus(logger)
}
