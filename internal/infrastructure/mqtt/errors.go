package mqtt

import "errors"

// Sentinel errors for broker operations; match with errors.Is.
var (
	// ErrNotConnected means the client is not currently talking to the
	// broker. Paho keeps retrying in the background.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the initial dial never succeeded.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a failed publish, including LWT-adjacent
	// status publishes.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a failed command-topic subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps a failed unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS values outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout means the broker did not acknowledge in time.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
