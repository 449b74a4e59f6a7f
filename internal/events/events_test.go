package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingMetrics struct {
	mu        sync.Mutex
	published map[string]int
	failed    map[string]int
	observed  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{published: map[string]int{}, failed: map[string]int{}}
}

func (m *countingMetrics) EventPublished(backend, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[backend+":"+kind]++
}

func (m *countingMetrics) EventPublishFailed(backend, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[backend+":"+kind]++
}

func (m *countingMetrics) PublishObserve(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed++
}

func (m *countingMetrics) SetBrokerConnected(string, bool) {}

func TestSubject(t *testing.T) {
	assert.Equal(t, "schoolbus.trip.started", Subject("schoolbus", KindTripStarted, "."))
	assert.Equal(t, "fleet/north/attendance/absent", Subject("fleet.north", KindAttendanceAbsent, "/"))
	assert.Equal(t, "trip.completed", Subject("", KindTripCompleted, "."))
	assert.Equal(t, "a_b.trip.started", Subject("a*b", KindTripStarted, "."))
}

func TestNewEventHasID(t *testing.T) {
	at := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	a, b := New(KindTripStarted, at), New(KindTripStarted, at)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, at, a.OccurredAt)
}

type fakeNATS struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeNATS) Publish(subj string, data []byte) error {
	f.subject, f.data = subj, data
	return f.err
}
func (f *fakeNATS) Drain() error { return nil }
func (f *fakeNATS) Close()       {}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeNATS{}
	m := newCountingMetrics()
	p := &NATSPublisher{nc: conn, prefix: "schoolbus", metrics: m}

	ev := New(KindAttendanceAbsent, time.Now())
	ev.TripID, ev.StudentID = 5, 9
	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, "schoolbus.attendance.absent", conn.subject)
	var got Event
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.EqualValues(t, 9, got.StudentID)
	assert.Equal(t, 1, m.published["nats:attendance.absent"])

	conn.err = errors.New("no responders")
	assert.Error(t, p.Publish(context.Background(), ev))
	assert.Equal(t, 1, m.failed["nats:attendance.absent"])
	assert.Equal(t, 2, m.observed)
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTT struct {
	topic string
	qos   byte
	tok   mqtt.Token
}

func (f *fakeMQTT) Publish(topic string, qos byte, _ bool, _ interface{}) mqtt.Token {
	f.topic, f.qos = topic, qos
	return f.tok
}
func (f *fakeMQTT) Disconnect(uint) {}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeMQTT{tok: completedToken(nil)}
	p := &MQTTPublisher{client: client, prefix: "schoolbus"}

	require.NoError(t, p.Publish(context.Background(), New(KindTripCompleted, time.Now())))
	assert.Equal(t, "schoolbus/trip/completed", client.topic)
	assert.Equal(t, byte(mqttQoS), client.qos)
}

func TestMQTTPublisher_ContextCancelled(t *testing.T) {
	client := &fakeMQTT{tok: &fakeToken{done: make(chan struct{})}}
	p := &MQTTPublisher{client: client, prefix: "schoolbus"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, New(KindTripStarted, time.Now()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := LogPublisher{Prefix: "schoolbus", Logger: zap.New(core)}

	ev := New(KindTripStarted, time.Now())
	ev.TripID = 11
	require.NoError(t, p.Publish(context.Background(), ev))

	entries := logs.FilterMessage("event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "schoolbus.trip.started", entries[0].ContextMap()["subject"])
	assert.EqualValues(t, 11, entries[0].ContextMap()["trip_id"])
}
