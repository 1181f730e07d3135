package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/fleet"
	"github.com/ccamateur/botvana/protocol"
	"github.com/ccamateur/botvana/registry"
)

// ActivityTimeout is how long a connection may stay silent before the
// handler terminates it. Bots ping every 5 seconds, so a healthy
// connection never comes close.
const ActivityTimeout = 15 * time.Second

// HandlerConfig carries the per-fleet content of BotConfiguration
// replies and handler tunables.
type HandlerConfig struct {
	MarketData []string
	Indicators []protocol.IndicatorConfig

	// ActivityTimeout overrides the 15s default; used by tests.
	ActivityTimeout time.Duration
}

// Handler drives one accepted connection until termination.
type Handler struct {
	registry        *registry.Registry
	events          *fleet.Fanout
	marketData      []string
	indicators      []protocol.IndicatorConfig
	activityTimeout time.Duration
	logger          *slog.Logger
	metrics         *Metrics
}

// NewHandler creates a connection handler. events and metrics may be
// nil.
func NewHandler(cfg HandlerConfig, reg *registry.Registry, events *fleet.Fanout,
	logger *slog.Logger, metrics *Metrics) *Handler {
	timeout := cfg.ActivityTimeout
	if timeout == 0 {
		timeout = ActivityTimeout
	}
	return &Handler{
		registry:        reg,
		events:          events,
		marketData:      cfg.MarketData,
		indicators:      cfg.Indicators,
		activityTimeout: timeout,
		logger:          logger,
		metrics:         metrics,
	}
}

// frameResult carries one decoded frame or the stream error that ended
// reading.
type frameResult struct {
	msg protocol.Message
	err error
}

// connState is the handler's connection-local state: no bot id until a
// valid Hello has been processed.
type connState struct {
	botID      protocol.BotID
	registered bool
}

// Handle runs the connection until a terminal condition. A clean remote
// close of a registered bot returns nil; every other termination
// returns a classified error. On every exit path a registered bot has
// been removed from the registry.
func (h *Handler) Handle(ctx context.Context, stream *protocol.Framed) error {
	var state connState

	frames := make(chan frameResult)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			msg, err := stream.Next()
			select {
			case frames <- frameResult{msg: msg, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(h.activityTimeout)
	defer idle.Stop()

	for {
		select {
		case r := <-frames:
			if r.err != nil {
				return h.streamEnded(ctx, &state, r.err)
			}

			h.logger.Debug("Received frame", "bot_id", state.botID, "frame", fmt.Sprintf("%T", r.msg))
			if err := h.process(ctx, stream, &state, r.msg); err != nil {
				return err
			}

			// Any inbound frame resets the inactivity window.
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(h.activityTimeout)

		case <-idle.C:
			h.logger.Warn("Timeout while waiting for activity", "bot_id", state.botID)
			h.unregister(ctx, &state, fleet.ReasonTimeout)
			return errors.WrapTransient(errors.ErrTimeout, "Handler", "Handle", "wait for frame")

		case <-ctx.Done():
			h.unregister(ctx, &state, fleet.ReasonShutdown)
			return ctx.Err()
		}
	}
}

// streamEnded handles the reader goroutine's terminal error: a clean
// EOF from a registered bot is the expected disconnect path, everything
// else is a read error.
func (h *Handler) streamEnded(ctx context.Context, state *connState, err error) error {
	if err == io.EOF {
		if state.registered {
			h.unregister(ctx, state, fleet.ReasonCleanClose)
			return nil
		}
		// Closed without ever saying Hello: nothing to clean up, but
		// not a successful session either.
		return errors.WrapTransient(
			fmt.Errorf("%w: stream ended before hello", errors.ErrRead),
			"Handler", "Handle", "read frame")
	}

	h.unregister(ctx, state, fleet.ReasonReadError)
	return errors.WrapTransient(
		fmt.Errorf("%w: %v", errors.ErrRead, err),
		"Handler", "Handle", "read frame")
}

// process dispatches one inbound frame per the handshake state machine.
func (h *Handler) process(ctx context.Context, stream *protocol.Framed, state *connState,
	msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.Hello:
		return h.processHello(ctx, stream, state, m)

	case protocol.Ping:
		h.logger.Debug("Received ping", "timestamp", m.Timestamp, "bot_id", state.botID)
		if err := stream.Send(protocol.NewPong(m.Timestamp)); err != nil {
			h.unregister(ctx, state, fleet.ReasonWriteError)
			return errors.WrapTransient(
				fmt.Errorf("%w: %v", errors.ErrWrite, err),
				"Handler", "process", "send pong")
		}
		return nil

	default:
		h.logger.Warn("Unhandled message from bot",
			"frame", fmt.Sprintf("%T", msg),
			"bot_id", state.botID)
		return nil
	}
}

// processHello registers the bot and answers with its configuration.
func (h *Handler) processHello(ctx context.Context, stream *protocol.Framed, state *connState,
	hello protocol.Hello) error {
	if state.registered {
		h.logger.Warn("Bot sending duplicate Hello message", "bot_id", state.botID)
		h.unregister(ctx, state, fleet.ReasonDuplicateHello)
		return errors.WrapInvalid(errors.ErrDuplicateHello, "Handler", "process", "hello")
	}

	state.botID = hello.BotID
	state.registered = true

	// Register before snapshotting so the bot's own configuration
	// lists it as a peer. Concurrent joiners may or may not appear;
	// the snapshot is not atomic across connections.
	h.registry.Add(hello.BotID)
	snapshot := h.registry.List()

	peers := make([]protocol.PeerBot, 0, len(snapshot))
	for _, id := range snapshot {
		peers = append(peers, protocol.PeerBot{BotID: id})
	}

	h.logger.Info("Hello from bot",
		"bot_id", hello.BotID,
		"hostname", hello.Metadata.Hostname,
		"version", hello.Metadata.Version,
		"total", len(snapshot))

	reply := protocol.BotConfiguration{
		BotID:      hello.BotID,
		PeerBots:   peers,
		MarketData: h.marketData,
		Indicators: h.indicators,
	}
	if err := stream.Send(reply); err != nil {
		// The bot never saw its configuration, so it was never
		// announced as connected.
		h.registry.Remove(state.botID)
		state.registered = false
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrWrite, err),
			"Handler", "process", "send configuration")
	}

	h.metrics.recordRegistration()
	h.events.Publish(ctx, fleet.Connected(hello.BotID))
	return nil
}

// unregister removes the connection's bot from the registry, if it ever
// registered, and announces the disconnect.
func (h *Handler) unregister(ctx context.Context, state *connState, reason string) {
	if !state.registered {
		return
	}
	h.registry.Remove(state.botID)
	h.events.Publish(ctx, fleet.Disconnected(state.botID, reason))
	state.registered = false
}
