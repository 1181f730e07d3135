package slot

import "sync"

// Mailbox is a thread-safe single-slot mailbox. The zero value is not
// usable; create one with NewMailbox.
type Mailbox[T any] struct {
	mu sync.Mutex
	ch chan T
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// Put stores v in the mailbox, replacing any value already held.
// Put never blocks.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		select {
		case m.ch <- v:
			return
		default:
		}
		// Slot occupied: evict the stale value and try again.
		select {
		case <-m.ch:
		default:
		}
	}
}

// TryGet removes and returns the held value, or the zero value and
// false when the mailbox is empty.
func (m *Mailbox[T]) TryGet() (T, bool) {
	select {
	case v := <-m.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Receive exposes the mailbox as a receive channel for use in select
// loops. A value read from the channel is removed from the mailbox.
func (m *Mailbox[T]) Receive() <-chan T {
	return m.ch
}
