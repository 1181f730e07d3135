// Package registry tracks the set of currently-connected bot
// identities on the fleet server.
//
// The registry is the only state shared across connection handler
// goroutines. Access is mutex-guarded with no lock ever held across an
// I/O wait: handlers call Add, Remove and List as short critical
// sections and work on the returned snapshots. Membership means
// "currently has an open, handshaken connection"; a BotID appears at
// most once.
package registry
