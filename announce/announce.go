package announce

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/fleet"
)

// Connection defaults, overridable through Options.
const (
	defaultMaxReconnects = 60
	defaultReconnectWait = 2 * time.Second
	defaultClientName    = "botvana-fleet-server"
)

// Option adjusts Sink construction.
type Option func(*Sink)

// WithClientName sets the connection name reported to the NATS server.
func WithClientName(name string) Option {
	return func(s *Sink) { s.clientName = name }
}

// WithMaxReconnects bounds automatic reconnection attempts.
func WithMaxReconnects(n int) Option {
	return func(s *Sink) { s.maxReconnects = n }
}

// WithReconnectWait sets the delay between reconnection attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(s *Sink) { s.reconnectWait = d }
}

// Sink publishes fleet events to a NATS subject. It implements
// fleet.EventSink.
type Sink struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger

	clientName    string
	maxReconnects int
	reconnectWait time.Duration
}

// New connects to the NATS server at url and returns a sink publishing
// on subject.
func New(url, subject string, logger *slog.Logger, opts ...Option) (*Sink, error) {
	if url == "" || subject == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Sink", "New",
			"check url and subject")
	}

	s := &Sink{
		subject:       subject,
		logger:        logger,
		clientName:    defaultClientName,
		maxReconnects: defaultMaxReconnects,
		reconnectWait: defaultReconnectWait,
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, err := nats.Connect(url,
		nats.Name(s.clientName),
		nats.MaxReconnects(s.maxReconnects),
		nats.ReconnectWait(s.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.WrapTransient(err, "Sink", "New", "connect to nats")
	}
	s.conn = conn
	return s, nil
}

// Publish serialises the event and publishes it on the sink's subject.
func (s *Sink) Publish(_ context.Context, event fleet.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.WrapInvalid(err, "Sink", "Publish", "marshal event")
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return errors.WrapTransient(err, "Sink", "Publish", "publish event")
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (s *Sink) Close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Flush(); err != nil {
		s.logger.Warn("nats flush on close failed", "error", err)
	}
	s.conn.Close()
}
