// Package fleet defines the connect/disconnect events emitted by the
// server's connection handlers and the sink contract they are fanned
// out to.
//
// Sinks are observers: the NATS announcer, the Postgres journal and the
// ops websocket feed all implement EventSink. A failing sink is logged
// and skipped, never failing the connection that produced the event.
package fleet
