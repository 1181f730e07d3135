package shutdown

import (
	"sync"
	"time"

	"github.com/ccamateur/botvana/errors"
)

// Coordinator coordinates cooperative shutdown across tasks.
type Coordinator struct {
	mu        sync.Mutex
	triggered chan struct{}
	fired     bool
	guards    sync.WaitGroup
}

// New creates an untriggered coordinator.
func New() *Coordinator {
	return &Coordinator{triggered: make(chan struct{})}
}

// Trigger starts shutdown. It is safe to call more than once; only the
// first call has any effect.
func (c *Coordinator) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fired {
		return
	}
	c.fired = true
	close(c.triggered)
}

// Triggered returns a channel closed once shutdown has been triggered.
// It is usable from any number of waiters and from select loops.
func (c *Coordinator) Triggered() <-chan struct{} {
	return c.triggered
}

// IsTriggered reports whether shutdown has been triggered.
func (c *Coordinator) IsTriggered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Guard delays shutdown completion while held.
type Guard struct {
	release sync.Once
	c       *Coordinator
}

// Release releases the guard. Releasing more than once is a no-op.
func (g *Guard) Release() {
	g.release.Do(func() {
		g.c.guards.Done()
	})
}

// DelayGuard acquires a guard that keeps WaitIdle from returning until
// released. It fails with ErrShuttingDown once shutdown has been
// triggered.
func (c *Coordinator) DelayGuard() (*Guard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fired {
		return nil, errors.ErrShuttingDown
	}
	c.guards.Add(1)
	return &Guard{c: c}, nil
}

// WaitIdle blocks until shutdown has been triggered and every delay
// guard has been released, or until timeout elapses after the trigger.
func (c *Coordinator) WaitIdle(timeout time.Duration) error {
	<-c.triggered

	done := make(chan struct{})
	go func() {
		c.guards.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrTimeout, "Coordinator", "WaitIdle", "wait for guards")
	}
}
