package ops

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccamateur/botvana/fleet"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialFeed(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestFeedBroadcastsEvents(t *testing.T) {
	feed := NewFeed(discardLogger())
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn1 := dialFeed(t, srv)
	conn2 := dialFeed(t, srv)

	require.Eventually(t, func() bool { return feed.Len() == 2 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, feed.Publish(context.Background(), fleet.Connected("B1")))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev fleet.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		assert.Equal(t, fleet.EventBotConnected, ev.Type)
		assert.Equal(t, "B1", ev.BotID.String())
	}
}

func TestFeedDropsSlowClient(t *testing.T) {
	feed := NewFeed(discardLogger())

	// A subscriber with no write loop draining it stands in for a
	// client too slow to keep up.
	stalled := &client{send: make(chan []byte, clientQueueSize), done: make(chan struct{})}
	feed.mu.Lock()
	feed.clients[stalled] = struct{}{}
	feed.mu.Unlock()

	for i := 0; i < clientQueueSize; i++ {
		require.NoError(t, feed.Publish(context.Background(), fleet.Connected("B1")))
	}
	require.Equal(t, 1, feed.Len())

	// The queue is full; one more event evicts the subscriber.
	require.NoError(t, feed.Publish(context.Background(), fleet.Connected("B1")))
	assert.Equal(t, 0, feed.Len())

	select {
	case <-stalled.done:
	default:
		t.Fatal("dropped client was not signalled")
	}
}

func TestFeedCloseDisconnectsClients(t *testing.T) {
	feed := NewFeed(discardLogger())
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dialFeed(t, srv)
	require.Eventually(t, func() bool { return feed.Len() == 1 },
		time.Second, 10*time.Millisecond)

	feed.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	// Publishing after close reaches no one and must not fail.
	require.NoError(t, feed.Publish(context.Background(), fleet.Connected("B2")))
}

var _ fleet.EventSink = (*Feed)(nil)
