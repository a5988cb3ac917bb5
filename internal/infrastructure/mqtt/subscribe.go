package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for a topic pattern. MQTT wildcards
// work: "respeaker/command/+" matches every command topic.
//
// The subscription is tracked and re-established on reconnect. Handlers
// run on paho's goroutines and must not block; the panic recovery from
// wrapHandler applies.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subsMu.Lock()
	c.subs[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subsMu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.dropSubscription(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.dropSubscription(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// dropSubscription removes a topic from the restore set after a failed
// subscribe, so reconnects do not resurrect it.
func (c *Client) dropSubscription(topic string) {
	c.subsMu.Lock()
	delete(c.subs, topic)
	c.subsMu.Unlock()
}

// Unsubscribe stops delivery for an exact topic pattern. Messages
// already in flight may still reach the handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.dropSubscription(topic)

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of tracked topics.
func (c *Client) SubscriptionCount() int {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return len(c.subs)
}

// HasSubscription reports whether the exact topic string is tracked.
// No pattern matching is attempted.
func (c *Client) HasSubscription(topic string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, exists := c.subs[topic]
	return exists
}
