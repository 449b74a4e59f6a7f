package events

import (
	"context"
	"strings"
	"time"

	"schoolbus/internal/domain"

	"github.com/google/uuid"
)

// Event kinds. The subject is "<prefix>.<kind>".
const (
	KindAttendanceAbsent = "attendance.absent"
	KindAbsenceReversed  = "attendance.absence_reversed"
	KindTripStarted      = "trip.started"
	KindTripCompleted    = "trip.completed"
)

// Event is the JSON message handed to the notification collaborator.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurredAt"`
	TripID     domain.ID `json:"tripId"`
	DriverID   domain.ID `json:"driverId"`
	StudentID  domain.ID `json:"studentId,omitempty"`
	TripDate   string    `json:"tripDate"`
	TripType   string    `json:"tripType"`
	Session    string    `json:"session"`
	Status     string    `json:"status"`
	RequestID  string    `json:"requestId,omitempty"`
}

func New(kind string, at time.Time) Event {
	return Event{ID: uuid.NewString(), Kind: kind, OccurredAt: at}
}

// Publisher delivers events. Publish must not block longer than ctx allows.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// PublisherMetrics is implemented by the metrics collector.
type PublisherMetrics interface {
	EventPublished(backend, kind string)
	EventPublishFailed(backend, kind string)
	PublishObserve(backend string, d time.Duration)
	SetBrokerConnected(backend string, connected bool)
}

// Subject joins prefix and kind with sep, dropping empty parts.
func Subject(prefix, kind, sep string) string {
	parts := []string{}
	for _, p := range strings.Split(prefix, ".") {
		if p = subjectToken(p); p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, strings.Split(kind, ".")...)
	return strings.Join(parts, sep)
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// neither NATS nor MQTT accept wildcards inside a token
	repl := strings.NewReplacer(" ", "_", ">", "_", "*", "_", "/", "_", "#", "_", "+", "_", "\t", "_")
	return repl.Replace(s)
}

func observe(m PublisherMetrics, backend, kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.PublishObserve(backend, time.Since(start))
	if err != nil {
		m.EventPublishFailed(backend, kind)
	} else {
		m.EventPublished(backend, kind)
	}
}
