// Package mqtt publishes call events to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Publisher defines the interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Options configures the MQTT publisher.
type Options struct {
	Broker   string
	ClientID string
	QoS      byte
}

// Client wraps a Paho MQTT client.
type Client struct {
	client paho.Client
	qos    byte
}

// New creates and connects an MQTT publisher.
func New(opts Options) (*Client, error) {
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second)

	client := paho.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", opts.Broker, err)
	}

	return &Client{
		client: client,
		qos:    opts.QoS,
	}, nil
}

// Publish blocks until the broker acknowledges the message or ctx is done.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	token := c.client.Publish(topic, c.qos, false, payload)

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Close() error {
	c.client.Disconnect(1000)
	return nil
}

// Topic builds <prefix>/calls/<ucid>/<event>.
func Topic(prefix, ucid, event string) string {
	return fmt.Sprintf("%s/calls/%s/%s", prefix, ucid, event)
}
