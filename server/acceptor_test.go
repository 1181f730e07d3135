package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccamateur/botvana/fleet"
	"github.com/ccamateur/botvana/protocol"
	"github.com/ccamateur/botvana/registry"
)

type acceptorFixture struct {
	srv *Server
	reg *registry.Registry
}

func startServer(t *testing.T, maxConnections int) *acceptorFixture {
	t.Helper()

	reg := registry.New(nil)
	logger := slog.Default()
	handler := NewHandler(HandlerConfig{MarketData: []string{"ETH/USD"}}, reg,
		fleet.NewFanout(logger, fleet.NewLogSink(logger)), logger, nil)
	srv := New("127.0.0.1:0", maxConnections, handler, logger, nil)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		_ = srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		_ = srv.Close()
		<-serveDone
	})

	return &acceptorFixture{srv: srv, reg: reg}
}

func dialBot(t *testing.T, addr string, id protocol.BotID) (*protocol.Framed, net.Conn) {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	framed := protocol.NewFramed(conn)
	require.NoError(t, framed.Send(protocol.NewHello(id, protocol.BotMetadata{})))
	return framed, conn
}

func TestAcceptorRegistersBots(t *testing.T) {
	fx := startServer(t, 4)
	addr := fx.srv.Addr().String()

	framed, conn := dialBot(t, addr, "B1")
	defer func() { _ = conn.Close() }()

	msg, err := framed.Next()
	require.NoError(t, err)
	cfg, ok := msg.(protocol.BotConfiguration)
	require.True(t, ok)
	assert.Equal(t, protocol.BotID("B1"), cfg.BotID)
	assert.True(t, fx.reg.Contains("B1"))
}

func TestPermitPoolBoundsConnections(t *testing.T) {
	fx := startServer(t, 1)
	addr := fx.srv.Addr().String()

	// First bot takes the only permit.
	framed1, conn1 := dialBot(t, addr, "B1")
	_, err := framed1.Next()
	require.NoError(t, err)

	// Second bot is accepted at the TCP level but waits for a permit:
	// its Hello must not be answered while the first bot is connected.
	conn2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer func() { _ = conn2.Close() }()
	framed2 := protocol.NewFramed(conn2)
	require.NoError(t, framed2.Send(protocol.NewHello("B2", protocol.BotMetadata{})))

	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, err = framed2.Next()
	require.Error(t, err, "second bot must be held back by the permit pool")
	require.NoError(t, conn2.SetReadDeadline(time.Time{}))
	assert.False(t, fx.reg.Contains("B2"))

	// Releasing the first permit admits the waiting bot.
	require.NoError(t, conn1.Close())

	msg, err := framed2.Next()
	require.NoError(t, err)
	cfg, ok := msg.(protocol.BotConfiguration)
	require.True(t, ok)
	assert.Equal(t, protocol.BotID("B2"), cfg.BotID)
	assert.True(t, fx.reg.Contains("B2"))
	assert.False(t, fx.reg.Contains("B1"))
}

func TestConcurrentRegistrations(t *testing.T) {
	fx := startServer(t, 16)
	addr := fx.srv.Addr().String()

	const n = 8
	conns := make([]net.Conn, 0, n)
	for i := 0; i < n; i++ {
		framed, conn := dialBot(t, addr, protocol.BotID(fmt.Sprintf("bot-%d", i)))
		conns = append(conns, conn)
		_, err := framed.Next()
		require.NoError(t, err)
	}
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	assert.Equal(t, n, fx.reg.Len())
}

func TestHandlerFailureDoesNotStopAcceptor(t *testing.T) {
	fx := startServer(t, 4)
	addr := fx.srv.Addr().String()

	// A connection that violates the protocol...
	framed1, conn1 := dialBot(t, addr, "B1")
	_, err := framed1.Next()
	require.NoError(t, err)
	require.NoError(t, framed1.Send(protocol.NewHello("B1", protocol.BotMetadata{})))

	// ...must not prevent the next bot from registering.
	require.Eventually(t, func() bool { return !fx.reg.Contains("B1") },
		2*time.Second, 10*time.Millisecond)
	_ = conn1.Close()

	framed2, conn2 := dialBot(t, addr, "B2")
	defer func() { _ = conn2.Close() }()
	_, err = framed2.Next()
	require.NoError(t, err)
	assert.True(t, fx.reg.Contains("B2"))
}
