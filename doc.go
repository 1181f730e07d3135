// Package botvana is the control plane for a fleet of autonomous trading
// bots. A central server (cmd/fleet-server) accepts persistent TCP
// connections from bot processes (cmd/botnode), enforces a one-time Hello
// registration handshake, tracks the set of connected bots in a shared
// registry, and hands each newly joined bot its configuration: peer
// topology, market-data symbols and indicator setup.
//
// # Architecture
//
//	┌──────────────┐   TCP (length-prefixed frames)   ┌──────────────┐
//	│   botnode    │ ───────────────────────────────► │ fleet-server │
//	│              │                                  │              │
//	│ ControlEngine│ ◄─── BotConfiguration ────────── │  Acceptor    │
//	│  (engine/)   │                                  │  Handler     │
//	└──────┬───────┘                                  └──────┬───────┘
//	       │ fan-out (capacity-1 mailboxes)                  │
//	       ▼                                                 ▼
//	 local consumers                                  registry/ + fleet
//	 (market data, indicators, trading)               event sinks (NATS,
//	                                                  Postgres, websocket)
//
// # Packages
//
// Wire protocol and transport:
//   - protocol: typed message vocabulary (Hello, Ping, Pong,
//     BotConfiguration) and the length-prefixed JSON framing codec
//
// Server side:
//   - registry: concurrency-safe set of connected bot identities
//   - server: per-connection handshake state machine and the accepting
//     loop with its connection permit pool
//   - fleet: connect/disconnect events and the sink fan-out
//   - announce: NATS fleet-event sink
//   - journal: Postgres fleet-event journal
//   - ops: websocket live feed of fleet events
//
// Bot side:
//   - engine: the Engine contract shared by all data-producing
//     subsystems, the ControlEngine that owns the server connection, and
//     the Runner that orchestrates engines under one shutdown coordinator
//
// Infrastructure:
//   - config: YAML configuration for both processes
//   - errors: structured error classification and wrapping
//   - metric: Prometheus metrics registry
//   - shutdown: cooperative shutdown coordination with delay guards
//   - pkg/slot: generic single-slot overwrite mailbox
package botvana
