// Package journal persists fleet lifecycle events to Postgres.
//
// It implements fleet.EventSink on top of a pgx connection pool. The
// journal is append-only; each event becomes one row in the
// fleet_events table, which the journal creates on startup if it does
// not exist.
package journal
