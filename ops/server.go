package ops

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/metric"
)

// Server hosts the operator HTTP endpoints: /metrics for Prometheus
// scrapes and /ws/events for the live fleet event feed.
type Server struct {
	httpServer *http.Server
	feed       *Feed
	logger     *slog.Logger
}

// NewServer builds the operator server. metrics may be nil, in which
// case /metrics is not served.
func NewServer(listenAddr string, feed *Feed, metrics *metric.Registry,
	logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws/events", feed)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		feed:   feed,
		logger: logger,
	}
}

// Serve runs the HTTP server until Shutdown is called.
func (s *Server) Serve() error {
	s.logger.Info("Ops server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "Server", "Serve", "serve ops http")
	}
	return nil
}

// Shutdown closes the event feed and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.feed.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Shutdown", "drain http server")
	}
	return nil
}
