package events

import (
	"fmt"

	"schoolbus/internal/config"

	"go.uber.org/zap"
)

// NewPublisher builds the publisher for the configured backend.
func NewPublisher(env config.Env, logger *zap.Logger, m PublisherMetrics) (Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch env.EventsBackend {
	case "", "log":
		return LogPublisher{Prefix: env.EventsPrefix, Logger: logger, Metrics: m}, nil
	case "nats":
		p, err := NewNATSPublisher(env.NATSURL, env.EventsPrefix, logger, m)
		if err != nil {
			return nil, fmt.Errorf("connect nats %s: %w", env.NATSURL, err)
		}
		return p, nil
	case "mqtt":
		return NewMQTTPublisher(env.MQTTBroker, env.EventsPrefix, logger, m)
	default:
		return nil, fmt.Errorf("unknown events backend %q", env.EventsBackend)
	}
}
