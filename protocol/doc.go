// Package protocol defines the wire vocabulary exchanged between botnode
// and fleet-server, and the framing codec that carries it over TCP.
//
// # Messages
//
// The protocol is a closed variant set:
//
//   - Hello: one-time registration, client to server, carries the bot's
//     identity and metadata
//   - Ping / Pong: heartbeat, either direction
//   - BotConfiguration: server to client, sent once in reply to a valid
//     Hello; lists peer bots, market-data symbols and indicator configs
//
// Frames of an unknown type decode to Unknown rather than failing the
// stream, so protocol additions do not break older peers.
//
// # Framing
//
// Each frame is a uint32 big-endian length prefix followed by a JSON
// envelope {"type": ..., "payload": ...}. Framed.Next distinguishes a
// clean end of stream (io.EOF on a frame boundary) from a truncated or
// malformed frame, which the connection handlers treat as read errors.
package protocol
