// Package shutdown provides cooperative process-wide shutdown
// coordination.
//
// A Coordinator is triggered once and observed by any number of
// waiters through the Triggered channel. Tasks that must not be
// interrupted mid-operation (a bot mid-handshake, for instance) hold a
// delay guard: shutdown does not complete until every guard is
// released, and no new guard can be taken once shutdown has been
// triggered. There is no forced preemption; a task stops only when it
// observes the trigger at one of its select points.
package shutdown
