// Package activity delivers authentication events to observers outside the
// request path: Prometheus counters, the audit trail, the MQTT event bus
// and InfluxDB.
//
// Sinks never return errors to the auth service. Slow transports are wrapped
// in an Async queue so a broker outage cannot stall a login.
package activity
