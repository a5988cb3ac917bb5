package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/brookman/respeaker-go/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for the respeaker topic tree.
//
// Outbound it carries retained parameter samples and the service status;
// inbound it carries set/reset commands. The broker connection survives
// the device itself resetting, so subscriptions are tracked and
// restored on every reconnect.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// subs is the restore set for reconnects.
	subs   map[string]subscription
	subsMu sync.RWMutex

	up      bool
	stateMu sync.RWMutex

	connectHook    func()
	disconnectHook func(err error)
	hookMu         sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the logging surface handler failures are reported through.
// *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one inbound message. Paho invokes handlers on
// its own goroutines; a returned error is logged and the message is
// still acknowledged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker with the LWT and reconnect policy from cfg
// and blocks until the first connection succeeds or times out. The
// online status is published retained once connected.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := &Client{
		cfg:           cfg,
		options:       opts,
		subs: make(map[string]subscription),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously; mark connected here so
	// IsConnected holds as soon as Connect returns.
	c.stateMu.Lock()
	c.up = true
	c.stateMu.Unlock()

	return c, nil
}

// handleConnect runs on initial connect and every reconnect.
func (c *Client) handleConnect() {
	c.stateMu.Lock()
	c.up = true
	c.stateMu.Unlock()

	c.restoreSubscriptions()
	c.publishOnlineStatus()

	c.hookMu.RLock()
	hook := c.connectHook
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.stateMu.Lock()
	c.up = false
	c.stateMu.Unlock()

	c.hookMu.RLock()
	hook := c.disconnectHook
	c.hookMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// restoreSubscriptions re-subscribes every tracked topic. Errors during
// a reconnect window are ignored; paho retries the connection itself.
func (c *Client) restoreSubscriptions() {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	for _, sub := range c.subs {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

func (c *Client) publishOnlineStatus() {
	topic := Topics{}.Status()
	payload := buildOnlinePayload(c.cfg.Broker.ClientID)
	c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
}

// Close publishes a graceful offline status (distinct from the LWT crash
// status) and disconnects with a quiesce window for pending publishes.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		topic := Topics{}.Status()
		payload := buildOfflinePayload(c.cfg.Broker.ClientID)
		token := c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.stateMu.Lock()
	c.up = false
	c.stateMu.Unlock()

	return nil
}

// HealthCheck reports whether the broker connection is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state combined with
// paho's own view.
func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.up && c.client.IsConnected()
}

// SetOnConnect installs a callback invoked on initial connect and every
// reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.hookMu.Lock()
	c.connectHook = callback
	c.hookMu.Unlock()
}

// SetOnDisconnect installs a callback invoked when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.hookMu.Lock()
	c.disconnectHook = callback
	c.hookMu.Unlock()
}

// SetLogger installs a logger for handler errors and recovered panics.
// Without one those failures are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler adds panic recovery and error logging around a handler. A
// panicking command handler must not take the whole broker loop down.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
