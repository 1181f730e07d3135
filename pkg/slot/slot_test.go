package slot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxPutGet(t *testing.T) {
	m := NewMailbox[int]()

	_, ok := m.TryGet()
	assert.False(t, ok)

	m.Put(1)
	v, ok := m.TryGet()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.TryGet()
	assert.False(t, ok)
}

func TestMailboxOverwrite(t *testing.T) {
	m := NewMailbox[string]()

	m.Put("stale")
	m.Put("fresh")

	v, ok := m.TryGet()
	require.True(t, ok)
	assert.Equal(t, "fresh", v)

	_, ok = m.TryGet()
	assert.False(t, ok, "overwrite must not queue values")
}

func TestMailboxReceive(t *testing.T) {
	m := NewMailbox[int]()
	m.Put(42)

	select {
	case v := <-m.Receive():
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("value not delivered")
	}
}

func TestMailboxPutNeverBlocks(t *testing.T) {
	m := NewMailbox[int]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Put(n*1000 + j)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Put blocked under contention")
	}

	_, ok := m.TryGet()
	assert.True(t, ok)
}
