// Package mqtt publishes Inbotiq Core authentication events and presence
// to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - JSON event publishing with a configurable QoS
//   - Retained online/offline presence plus a Last Will for crash detection
//   - Connection health monitoring
//
// # Topics
//
//	inbotiq/system/status       retained presence (online, offline)
//	inbotiq/auth/<event type>   signup, login, login_failed, logout, ...
//
// # Security Considerations
//
//   - Enable TLS for anything beyond a local broker (cfg.Broker.TLS=true)
//   - Event payloads carry user IDs and roles, never emails or credentials
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.AuthEvent("login"), event, false)
package mqtt
