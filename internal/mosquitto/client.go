package mosquitto

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MsgHandler consumes raw MQTT payloads.
type MsgHandler interface {
	HandleMsg(msg []byte) error
}

type Client struct {
	client mqtt.Client
	log    *slog.Logger
}

type Config struct {
	Broker   string
	ClientId string
	Username string
	Password string
	Topics   []string
	QoS      byte
	// ConnectTimeout bounds the wait for the broker to come up.
	ConnectTimeout time.Duration
}

const (
	defaultConnectTimeout = 60 * time.Second
	disconnectQuiesceMs   = 250
)

// NewClient connects to the broker and subscribes handler to cfg.Topics.
// Subscriptions are renewed on every reconnect.
func NewClient(cfg Config, handler MsgHandler, log *slog.Logger) (*Client, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	onMessage := func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler.HandleMsg(msg.Payload()); err != nil {
			log.Warn("range message rejected", "topic", msg.Topic(), "err", err)
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientId)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("broker connection lost", "err", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		for _, topic := range cfg.Topics {
			if err := waitToken(c.Subscribe(topic, cfg.QoS, onMessage), cfg.ConnectTimeout); err != nil {
				log.Error("subscribe failed", "topic", topic, "err", err)
				continue
			}
			log.Info("subscribed", "topic", topic)
		}
	})

	client := mqtt.NewClient(opts)

	if err := waitToken(client.Connect(), cfg.ConnectTimeout); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", cfg.Broker, err)
	}

	return &Client{client: client, log: log}, nil
}

// waitToken waits for an MQTT operation to complete. A timeout is an error.
func waitToken(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("no response within %s", timeout)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesceMs)
	c.log.Info("disconnected from broker")
}
