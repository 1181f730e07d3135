package shutdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccamateur/botvana/errors"
)

func TestTriggerIsIdempotent(t *testing.T) {
	c := New()
	assert.False(t, c.IsTriggered())

	c.Trigger()
	c.Trigger()
	assert.True(t, c.IsTriggered())

	select {
	case <-c.Triggered():
	default:
		t.Fatal("Triggered channel not closed")
	}
}

func TestDelayGuardRefusedAfterTrigger(t *testing.T) {
	c := New()
	c.Trigger()

	_, err := c.DelayGuard()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrShuttingDown)
}

func TestWaitIdleWaitsForGuards(t *testing.T) {
	c := New()

	guard, err := c.DelayGuard()
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(released)
		guard.Release()
	}()

	c.Trigger()
	require.NoError(t, c.WaitIdle(time.Second))

	select {
	case <-released:
	default:
		t.Fatal("WaitIdle returned before guard release")
	}
}

func TestWaitIdleTimesOutOnHeldGuard(t *testing.T) {
	c := New()

	guard, err := c.DelayGuard()
	require.NoError(t, err)
	defer guard.Release()

	c.Trigger()
	err = c.WaitIdle(50 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTimeout)
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	c := New()

	guard, err := c.DelayGuard()
	require.NoError(t, err)
	guard.Release()
	guard.Release()

	c.Trigger()
	assert.NoError(t, c.WaitIdle(time.Second))
}
