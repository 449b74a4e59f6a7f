package metrics

import (
	"net/http"
	"strconv"
	"time"

	"schoolbus/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	reg *prometheus.Registry

	TripTransitions       *prometheus.CounterVec // to
	AttendanceTransitions *prometheus.CounterVec // from, to
	OperationErrors       *prometheus.CounterVec // op, kind

	EventsPublished  *prometheus.CounterVec // backend, kind
	EventPublishErrs *prometheus.CounterVec // backend, kind
	PublishDuration  *prometheus.HistogramVec
	BrokerConnected  *prometheus.GaugeVec

	HTTPRequests *prometheus.HistogramVec // method, route, status
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbus_trip_transitions_total",
			Help: "Trip status transitions by target status.",
		}, []string{"to"}),
		AttendanceTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbus_attendance_transitions_total",
			Help: "Attendance ledger transitions.",
		}, []string{"from", "to"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbus_operation_errors_total",
			Help: "Refused or failed engine operations by error kind.",
		}, []string{"op", "kind"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbus_events_published_total",
			Help: "Events handed to the broker.",
		}, []string{"backend", "kind"}),
		EventPublishErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbus_event_publish_errors_total",
			Help: "Events the broker refused.",
		}, []string{"backend", "kind"}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schoolbus_event_publish_duration_seconds",
			Help:    "Duration to marshal and publish an event.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"backend"}),
		BrokerConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schoolbus_broker_connected",
			Help: "1 if the event broker connection is established, 0 otherwise.",
		}, []string{"backend"}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schoolbus_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.TripTransitions, c.AttendanceTransitions, c.OperationErrors,
		c.EventsPublished, c.EventPublishErrs, c.PublishDuration, c.BrokerConnected,
		c.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) TripTransition(to domain.TripStatus) {
	c.TripTransitions.WithLabelValues(string(to)).Inc()
}

func (c *Collector) AttendanceTransition(from, to domain.AttendanceStatus) {
	c.AttendanceTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (c *Collector) OperationFailed(op, kind string) {
	c.OperationErrors.WithLabelValues(op, kind).Inc()
}

func (c *Collector) EventPublished(backend, kind string) {
	c.EventsPublished.WithLabelValues(backend, kind).Inc()
}

func (c *Collector) EventPublishFailed(backend, kind string) {
	c.EventPublishErrs.WithLabelValues(backend, kind).Inc()
}

func (c *Collector) PublishObserve(backend string, d time.Duration) {
	c.PublishDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (c *Collector) SetBrokerConnected(backend string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	c.BrokerConnected.WithLabelValues(backend).Set(v)
}

// ObserveHTTP records one request. route is the matched pattern, not the raw
// path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
