package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LogPublisher writes events to the process log. It is the default when no
// broker is configured.
type LogPublisher struct {
	Prefix  string
	Logger  *zap.Logger
	Metrics PublisherMetrics
}

func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	start := time.Now()
	l := p.Logger
	if l == nil {
		l = zap.NewNop()
	}
	l.Info("event",
		zap.String("subject", Subject(p.Prefix, ev.Kind, ".")),
		zap.String("event_id", ev.ID),
		zap.Int64("trip_id", int64(ev.TripID)),
		zap.Int64("student_id", int64(ev.StudentID)),
		zap.String("status", ev.Status),
		zap.String("request_id", ev.RequestID),
	)
	observe(p.Metrics, "log", ev.Kind, start, nil)
	return nil
}

func (LogPublisher) Close() {}
