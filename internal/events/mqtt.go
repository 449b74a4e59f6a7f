package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 3 * time.Second
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes at QoS 1 on "<prefix>/<kind>" topics.
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	metrics PublisherMetrics
}

func NewMQTTPublisher(broker, prefix string, logger *zap.Logger, m PublisherMetrics) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("schoolbus-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetOnConnectHandler(func(mqtt.Client) {
			if m != nil {
				m.SetBrokerConnected("mqtt", true)
			}
			logger.Info("mqtt connected", zap.String("broker", broker))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			if m != nil {
				m.SetBrokerConnected("mqtt", false)
			}
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return &MQTTPublisher{client: client, prefix: prefix, metrics: m}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	start := time.Now()
	err = waitToken(ctx, p.client.Publish(Subject(p.prefix, ev.Kind, "/"), mqttQoS, false, b))
	observe(p.metrics, "mqtt", ev.Kind, start, err)
	return err
}

func (p *MQTTPublisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}

func waitToken(ctx context.Context, tok mqtt.Token) error {
	timer := time.NewTimer(mqttPublishTimeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("mqtt publish: timeout")
	}
}
