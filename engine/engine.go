package engine

import (
	"context"
	"sync"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/pkg/slot"
	"github.com/ccamateur/botvana/shutdown"
)

// ConsumerLimit is the maximum number of output receivers one engine
// hands out.
const ConsumerLimit = 16

// Runnable is the lifecycle every engine implements. Start blocks until
// the context is cancelled or shutdown is triggered; a non-nil return
// means the engine failed rather than stopped.
type Runnable interface {
	Name() string
	Start(ctx context.Context, sd *shutdown.Coordinator) error
}

// Producer is a Runnable with a typed output stream. Each DataRx call
// registers an independent receiver.
type Producer[T any] interface {
	Runnable
	DataRx() (*slot.Mailbox[T], error)
}

// Fanout distributes produced values to up to ConsumerLimit single-slot
// receivers. Publish never blocks; a receiver that has not been drained
// keeps only the most recent value.
type Fanout[T any] struct {
	mu  sync.Mutex
	txs []*slot.Mailbox[T]
}

// NewReceiver registers and returns a new receiver mailbox. It fails
// with ErrConsumerLimit once ConsumerLimit receivers exist.
func (f *Fanout[T]) NewReceiver() (*slot.Mailbox[T], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.txs) >= ConsumerLimit {
		return nil, errors.WrapInvalid(errors.ErrConsumerLimit, "Fanout", "NewReceiver",
			"register receiver")
	}
	m := slot.NewMailbox[T]()
	f.txs = append(f.txs, m)
	return m, nil
}

// Publish stores v in every registered receiver.
func (f *Fanout[T]) Publish(v T) {
	f.mu.Lock()
	txs := make([]*slot.Mailbox[T], len(f.txs))
	copy(txs, f.txs)
	f.mu.Unlock()

	for _, m := range txs {
		m.Put(v)
	}
}

// Receivers returns a snapshot of the registered receiver mailboxes.
func (f *Fanout[T]) Receivers() []*slot.Mailbox[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	txs := make([]*slot.Mailbox[T], len(f.txs))
	copy(txs, f.txs)
	return txs
}
