// Package slot provides a generic single-slot mailbox with overwrite
// semantics.
//
// A Mailbox holds at most one value. Putting into a full mailbox
// replaces the held value instead of blocking the producer or dropping
// the new value: consumers of a mailbox only ever care about the most
// recent value (the latest BotConfiguration, the latest market snapshot),
// so the oldest value is the right one to lose. This is the capacity-1
// special case of a DropOldest ring buffer.
package slot
