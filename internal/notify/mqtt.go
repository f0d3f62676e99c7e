package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	alertQoS       = 1
	connectTimeout = 10 * time.Second
	// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
	disconnectQuiesce = 250
)

// MQTTConfig selects the broker and topic namespace.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes alerts to <prefix>/vehicles/<vehicleId>/alerts.
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

// NewMQTTPublisher connects to the broker. The client reconnects on its own
// after the first successful connect.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: empty broker address")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(client, cfg.TopicPrefix), nil
}

func newMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.Trim(prefix, "/")}
}

// Topic returns the topic alerts for vehicleID are published on.
func (p *MQTTPublisher) Topic(vehicleID string) string {
	segment := topicSegment(vehicleID)
	if p.prefix == "" {
		return "vehicles/" + segment + "/alerts"
	}
	return p.prefix + "/vehicles/" + segment + "/alerts"
}

func (p *MQTTPublisher) Publish(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("mqtt: encode alert: %w", err)
	}
	topic := p.Topic(alert.VehicleID)
	token := p.client.Publish(topic, alertQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt: publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)
	return nil
}

// topicSegment keeps an id from introducing levels or wildcards.
func topicSegment(id string) string {
	if id == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(id)
}
