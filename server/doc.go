// Package server implements the fleet-server side of the control-plane
// protocol: the accepting loop that admits bot connections and the
// per-connection handler that drives the registration handshake.
//
// # Handshake
//
// Each connection is a small state machine: Unregistered until a valid
// Hello arrives, Registered(BotID) after it. The first Hello registers
// the bot and answers with a BotConfiguration snapshot of the fleet; a
// second Hello on the same connection is a protocol violation that
// removes the registration and fails the connection, letting the bot's
// next attempt re-register cleanly. Pings are answered immediately in
// any state. A connection with no inbound frames for 15 seconds is
// timed out and, when registered, removed from the registry.
//
// # Admission control
//
// The acceptor owns a counting permit pool sized at max_connections.
// Every connection goroutine holds exactly one permit for its lifetime
// and releases it on every exit path, so a connection storm degrades
// into waiting, never into unbounded resource usage. Handler errors are
// logged and discarded per connection; only an accept failure is fatal
// to the server.
package server
