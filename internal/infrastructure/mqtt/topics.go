package mqtt

import "fmt"

// Topic prefixes for the LabLink bus.
const (
	// TopicPrefix is the base for all dispatcher topics.
	TopicPrefix = "lablink"

	// TopicPrefixEvents is the base for relayed domain events.
	TopicPrefixEvents = "lablink/events"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lablink/system"
)

// Topics provides builders for LabLink MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// Event returns the topic a domain event is relayed on.
//
// Example: lablink/events/device_connected
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// SystemStatus returns the dispatcher status topic.
//
// Example: lablink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching every relayed event.
//
// Pattern: lablink/events/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvents)
}
