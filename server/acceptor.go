package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/protocol"
)

// Server accepts bot connections and runs one Handler per connection,
// bounding concurrency with a counting permit pool.
type Server struct {
	listenAddr string
	handler    *Handler
	logger     *slog.Logger
	metrics    *Metrics
	permits    *semaphore.Weighted

	mu      sync.Mutex
	ln      net.Listener
	closing atomic.Bool
	wg      sync.WaitGroup
}

// New creates a server for the given listen address and connection
// limit.
func New(listenAddr string, maxConnections int, handler *Handler,
	logger *slog.Logger, metrics *Metrics) *Server {
	return &Server{
		listenAddr: listenAddr,
		handler:    handler,
		logger:     logger,
		metrics:    metrics,
		permits:    semaphore.NewWeighted(int64(maxConnections)),
	}
}

// Listen binds the listening socket. Serve calls Listen implicitly; it
// is exposed so callers can learn the bound address (":0" in tests)
// before accepting.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Listen", "bind listener")
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the listener fails or Close is
// called. Accept failure is fatal: the error is returned and the server
// stops. Per-connection errors are logged and never reach this loop.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	s.logger.Info("Listening for bot connections", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				s.wg.Wait()
				return nil
			}
			return errors.WrapFatal(err, "Server", "Serve", "accept connection")
		}

		s.metrics.recordAccepted()
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// Close stops accepting and waits for in-flight handlers to finish.
func (s *Server) Close() error {
	s.closing.Store(true)

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			return errors.Wrap(err, "Server", "Close", "close listener")
		}
	}
	s.wg.Wait()
	return nil
}

// handleConn owns one accepted connection: it acquires a permit (the
// admission-control gate, blocking when the fleet is at its connection
// limit), frames the stream, runs the handler to completion and
// releases the permit on every exit path.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	if err := s.permits.Acquire(ctx, 1); err != nil {
		// Shutdown while queued for admission.
		return
	}
	defer s.permits.Release(1)

	s.metrics.connActive()
	defer s.metrics.connDone()

	stream := protocol.NewFramed(conn)
	if err := s.handler.Handle(ctx, stream); err != nil && ctx.Err() == nil {
		s.logger.Error("Error while handling the connection",
			"remote", conn.RemoteAddr().String(),
			"error", err)
		s.metrics.recordFailure(failureReason(err))
	}
}

// failureReason maps a handler error to a bounded metrics label.
func failureReason(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrDuplicateHello):
		return "duplicate_hello"
	case stderrors.Is(err, errors.ErrTimeout):
		return "timeout"
	case stderrors.Is(err, errors.ErrWrite):
		return "write_error"
	case stderrors.Is(err, errors.ErrRead):
		return "read_error"
	default:
		return "other"
	}
}
