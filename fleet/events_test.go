package fleet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *recordingSink) Publish(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) received() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	fanout := NewFanout(slog.Default(), a, b)

	ev := Connected("bot-1")
	fanout.Publish(context.Background(), ev)

	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
	assert.Equal(t, EventBotConnected, a.received()[0].Type)
}

func TestFanoutSkipsFailingSink(t *testing.T) {
	failing := &recordingSink{fail: true}
	healthy := &recordingSink{}
	fanout := NewFanout(slog.Default(), failing, healthy)

	fanout.Publish(context.Background(), Disconnected("bot-1", ReasonTimeout))

	assert.Empty(t, failing.received())
	assert.Len(t, healthy.received(), 1)
	assert.Equal(t, ReasonTimeout, healthy.received()[0].Reason)
}

func TestNilFanoutIsSafe(t *testing.T) {
	var fanout *Fanout
	fanout.Publish(context.Background(), Connected("bot-1"))
}
