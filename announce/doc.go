// Package announce publishes fleet lifecycle events to NATS.
//
// The Sink implements fleet.EventSink, serialising each event as JSON
// and publishing it on a single configurable subject. NATS handles
// reconnection; the sink only reports disconnect and reconnect
// transitions through its logger.
package announce
