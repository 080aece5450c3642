package mqtt

import "fmt"

// Topic prefixes for Inbotiq Core.
const (
	// TopicPrefix is the root of every topic published by Core.
	TopicPrefix = "inbotiq"

	// TopicPrefixAuth is the base for authentication events.
	TopicPrefixAuth = TopicPrefix + "/auth"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for Inbotiq MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.AuthEvent("login") // "inbotiq/auth/login"
type Topics struct{}

// SystemStatus returns the retained presence topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AuthEvent returns the topic for one authentication event type.
//
// Example: inbotiq/auth/logout
func (Topics) AuthEvent(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixAuth, eventType)
}

// AllAuthEvents returns a wildcard matching every authentication event.
func (Topics) AllAuthEvents() string {
	return TopicPrefixAuth + "/#"
}
