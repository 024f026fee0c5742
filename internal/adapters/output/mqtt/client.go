package mqtt

import (
	"ajax-cloud-bridge/internal/config"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	keepAlive         = 60 * time.Second
	maxReconnectDelay = 2 * time.Minute
	disconnectQuiesce = 1000 // milliseconds
)

var ErrNotConnected = errors.New("mqtt client not connected")

// Client is a thin paho wrapper implementing ports.MessagePublisher.
// Subscriptions are remembered and restored after a reconnect.
type Client struct {
	cli    pahomqtt.Client
	qos    byte
	prefix string
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[string]pahomqtt.MessageHandler
}

// Connect dials the broker and blocks until the first connection succeeds or
// connectTimeout elapses. The broker publishes "offline" on the bridge status
// topic if the process disappears without calling Close.
func Connect(cfg config.MQTTConfig, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		qos:    byte(cfg.QoS),
		prefix: strings.Trim(cfg.TopicPrefix, "/"),
		logger: logger.With().Str("component", "mqtt").Logger(),
		subs:   make(map[string]pahomqtt.MessageHandler),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectDelay)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(StatusTopic(c.prefix), StatusOffline, 1, true)
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		c.logger.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
		c.restoreSubscriptions()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn().Err(err).Msg("mqtt connection lost")
	})

	c.cli = pahomqtt.NewClient(opts)
	token := c.cli.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to %s: timed out after %s", cfg.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}
	return c, nil
}

// Prefix returns the normalised topic prefix.
func (c *Client) Prefix() string {
	return c.prefix
}

func (c *Client) Publish(topic string, payload []byte, retain bool) error {
	if !c.cli.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := c.cli.Publish(topic, c.qos, retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	cb := c.wrapHandler(handler)

	c.mu.Lock()
	c.subs[topic] = cb
	c.mu.Unlock()

	token := c.cli.Subscribe(topic, c.qos, cb)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	c.logger.Info().Str("topic", topic).Msg("mqtt subscribed")
	return nil
}

// wrapHandler adapts handler to paho and recovers from its panics, which
// would otherwise kill the client's router goroutine. Handlers run on that
// goroutine and must return quickly.
func (c *Client) wrapHandler(handler func(topic string, payload []byte)) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error().Str("topic", msg.Topic()).Interface("panic", r).Msg("mqtt handler panic recovered")
			}
		}()
		handler(msg.Topic(), msg.Payload())
	}
}

func (c *Client) restoreSubscriptions() {
	c.mu.Lock()
	subs := make(map[string]pahomqtt.MessageHandler, len(c.subs))
	for t, h := range c.subs {
		subs[t] = h
	}
	c.mu.Unlock()

	for topic, cb := range subs {
		token := c.cli.Subscribe(topic, c.qos, cb)
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			c.logger.Error().Err(token.Error()).Str("topic", topic).Msg("failed to restore subscription")
		}
	}
}

// Close publishes a retained offline status and disconnects.
func (c *Client) Close() {
	if c.cli.IsConnectionOpen() {
		if err := c.Publish(StatusTopic(c.prefix), []byte(StatusOffline), true); err != nil {
			c.logger.Warn().Err(err).Msg("failed to publish offline status")
		}
	}
	c.cli.Disconnect(disconnectQuiesce)
	c.logger.Info().Msg("mqtt disconnected")
}
