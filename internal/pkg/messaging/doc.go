// Package messaging carries domain events between modules without tying use
// cases to a broker. NATS is the networked driver, memory delivers in
// process and none drops everything. Event headers carry the correlation id
// and the W3C trace context of the publishing request.
package messaging
