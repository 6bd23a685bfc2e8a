package bus

import (
	"context"
	"log"
)

// NullBus is a no-op implementation of the bus interface for when Redis is disabled
type NullBus struct {
	logger *log.Logger
}

// NewNullBus creates a new null bus instance
func NewNullBus(logger *log.Logger) *NullBus {
	if logger == nil {
		logger = log.New(log.Writer(), "[NullBus] ", log.LstdFlags)
	}

	return &NullBus{
		logger: logger,
	}
}

// Close is a no-op for null bus
func (nb *NullBus) Close() error {
	return nil
}

// PublishAlert logs the alert but doesn't actually publish it
func (nb *NullBus) PublishAlert(ctx context.Context, msg AlertMessage) error {
	nb.logger.Printf("Would publish alert %s (Redis disabled)", msg.Alert.ID)
	return nil
}

// PublishActivity logs the entry but doesn't actually publish it
func (nb *NullBus) PublishActivity(ctx context.Context, msg ActivityMessage) error {
	nb.logger.Printf("Would publish activity entry %s (Redis disabled)", msg.Entry.ID)
	return nil
}

// ReadAlertStream is a no-op for null bus (never returns)
func (nb *NullBus) ReadAlertStream(ctx context.Context, group, consumer string, handler func(ctx context.Context, msg AlertMessage) error) error {
	nb.logger.Printf("Would read alerts stream %s:%s (Redis disabled)", group, consumer)
	// Block until context is cancelled since this would normally be a blocking operation
	<-ctx.Done()
	return ctx.Err()
}

// GetStats returns empty stats for null bus
func (nb *NullBus) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{
		"type":   "null",
		"status": "disabled",
	}, nil
}

// HealthCheck always returns nil for null bus
func (nb *NullBus) HealthCheck(ctx context.Context) error {
	return nil
}
