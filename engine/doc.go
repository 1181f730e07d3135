// Package engine defines the lifecycle contract shared by every
// data-producing subsystem of a bot process and implements the control
// engine, the engine that owns the connection to the fleet server.
//
// A Runnable runs until shutdown is triggered. Engines with a typed
// output additionally expose single-slot receiver mailboxes through a
// Fanout, so consumers always observe the most recent value and a slow
// consumer never blocks the producer.
package engine
