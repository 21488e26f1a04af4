package events

import (
	"context"
	"log/slog"
)

// Publisher delivers notification payloads to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// LogPublisher writes notifications to the structured logger. It stands in
// for the broker in dev and tests.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a logging publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish writes the payload to the structured logger.
func (p *LogPublisher) Publish(_ context.Context, topic string, payload any) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("notification published", "topic", topic, "payload", payload)
	return nil
}
