// Package errors provides standardized error handling for the botvana
// control plane.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable),
// Invalid (protocol violation or bad input, non-retryable) and Fatal
// (unrecoverable, stop the process). Connection-level failures such as
// read errors, write errors, inactivity timeouts and clean disconnects
// are all transient: the bot's control engine responds to every one of
// them by reconnecting, and the server responds by discarding the one
// affected connection. A duplicate Hello is invalid: retrying the same
// handshake on the same connection can never succeed. A listener bind
// failure is fatal to the server.
//
// # Wrapping
//
// All wrapping follows the "component.method: action failed: %w" format:
//
//	errors.WrapTransient(err, "ControlEngine", "run", "dial server")
//
// Classification survives wrapping and is inspected with IsTransient,
// IsInvalid and IsFatal, which understand both ClassifiedError chains
// and the package's sentinel variables.
package errors
