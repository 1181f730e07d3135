// Package ops exposes the operator surface of the fleet server over
// HTTP: a WebSocket feed of live fleet events and the Prometheus
// metrics endpoint.
//
// The Feed implements fleet.EventSink; each published event is fanned
// out to every connected WebSocket client as a JSON text frame. Slow
// clients are dropped rather than allowed to stall the fanout.
package ops
