package mqtt

import "fmt"

// Topic prefix for the respeaker MQTT surface.
//
// The scheme is flat and small:
//
//	respeaker/status                  retained service status (also LWT)
//	respeaker/param/{NAME}            retained value of one parameter
//	respeaker/telemetry               retained snapshot of all read-only values
//	respeaker/command/set             incoming parameter writes
//	respeaker/command/reset           incoming device reset requests
//	respeaker/event/{type}            one-shot events (reset_completed, ...)
const TopicPrefix = "respeaker"

// Topics provides builders for the MQTT topics the service uses.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// Status returns the retained service status topic, also used as the LWT
// target.
//
// Example: respeaker/status
func (Topics) Status() string {
	return fmt.Sprintf("%s/status", TopicPrefix)
}

// Param returns the retained state topic for one parameter.
//
// Example: respeaker/param/DOAANGLE
func (Topics) Param(name string) string {
	return fmt.Sprintf("%s/param/%s", TopicPrefix, name)
}

// Telemetry returns the retained snapshot topic for all read-only values.
//
// Example: respeaker/telemetry
func (Topics) Telemetry() string {
	return fmt.Sprintf("%s/telemetry", TopicPrefix)
}

// CommandSet returns the topic for incoming parameter writes.
//
// Example: respeaker/command/set
func (Topics) CommandSet() string {
	return fmt.Sprintf("%s/command/set", TopicPrefix)
}

// CommandReset returns the topic for incoming device reset requests.
//
// Example: respeaker/command/reset
func (Topics) CommandReset() string {
	return fmt.Sprintf("%s/command/reset", TopicPrefix)
}

// Event returns the topic for one-shot events.
//
// Example: respeaker/event/reset_completed
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// AllCommands returns a pattern matching every command topic.
//
// Pattern: respeaker/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllParams returns a pattern matching every parameter state topic.
//
// Pattern: respeaker/param/+
func (Topics) AllParams() string {
	return fmt.Sprintf("%s/param/+", TopicPrefix)
}

// AllTopics returns a pattern matching all respeaker topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: respeaker/#
func (Topics) AllTopics() string {
	return fmt.Sprintf("%s/#", TopicPrefix)
}
