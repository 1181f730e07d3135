package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/pkg/slot"
	"github.com/ccamateur/botvana/protocol"
	"github.com/ccamateur/botvana/shutdown"
)

// Status is the control engine's view of its server connection.
type Status int32

// Control engine connection states
const (
	StatusOffline Status = iota
	StatusConnecting
	StatusOnline
)

// String returns the status as a log-friendly string.
func (s Status) String() string {
	switch s {
	case StatusOffline:
		return "offline"
	case StatusConnecting:
		return "connecting"
	case StatusOnline:
		return "online"
	default:
		return "unknown"
	}
}

// Timing defaults. Warmup gives co-located subsystems a moment to come
// up before the first dial; the retry delay paces reconnection forever.
const (
	defaultWarmup       = time.Second
	defaultRetryDelay   = time.Second
	defaultPingInterval = 5 * time.Second
	defaultDialTimeout  = 5 * time.Second
)

// Option adjusts ControlEngine construction.
type Option func(*ControlEngine)

// WithWarmup overrides the startup delay before the first dial.
func WithWarmup(d time.Duration) Option {
	return func(e *ControlEngine) { e.warmup = d }
}

// WithRetryDelay overrides the delay between connection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(e *ControlEngine) { e.retryDelay = d }
}

// WithPingInterval overrides the heartbeat interval.
func WithPingInterval(d time.Duration) Option {
	return func(e *ControlEngine) { e.pingInterval = d }
}

// ControlEngine owns the bot's connection to the fleet server. It
// registers with a Hello, heartbeats with Pings, and fans received
// configuration out to its consumers. Connection loss is always
// recoverable: the engine redials until shutdown, indefinitely.
type ControlEngine struct {
	botID      protocol.BotID
	metadata   protocol.BotMetadata
	serverAddr string

	status  atomic.Int32
	running atomic.Bool

	mu         sync.Mutex
	lastConfig *protocol.BotConfiguration

	fanout Fanout[protocol.BotConfiguration]
	logger *slog.Logger

	warmup       time.Duration
	retryDelay   time.Duration
	pingInterval time.Duration
	dialTimeout  time.Duration
}

// NewControl creates a control engine for the given bot identity and
// server address.
func NewControl(botID protocol.BotID, meta protocol.BotMetadata, serverAddr string,
	logger *slog.Logger, opts ...Option) *ControlEngine {
	e := &ControlEngine{
		botID:        botID,
		metadata:     meta,
		serverAddr:   serverAddr,
		logger:       logger,
		warmup:       defaultWarmup,
		retryDelay:   defaultRetryDelay,
		pingInterval: defaultPingInterval,
		dialTimeout:  defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Runnable.
func (e *ControlEngine) Name() string { return "control" }

// Status returns the current connection status.
func (e *ControlEngine) Status() Status {
	return Status(e.status.Load())
}

func (e *ControlEngine) setStatus(s Status) {
	e.status.Store(int32(s))
}

// LastConfiguration returns the most recently received configuration,
// or nil before the first one arrives.
func (e *ControlEngine) LastConfiguration() *protocol.BotConfiguration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastConfig
}

// DataRx registers and returns a new configuration receiver. Up to
// ConsumerLimit receivers may be registered.
func (e *ControlEngine) DataRx() (*slot.Mailbox[protocol.BotConfiguration], error) {
	return e.fanout.NewReceiver()
}

// DataTxs returns the producer-side handles of all registered receivers.
func (e *ControlEngine) DataTxs() []*slot.Mailbox[protocol.BotConfiguration] {
	return e.fanout.Receivers()
}

// Start runs the control loop until shutdown is triggered or ctx is
// cancelled. Attempt failures are logged and retried after a fixed
// delay; Start never returns because retries ran out.
func (e *ControlEngine) Start(ctx context.Context, sd *shutdown.Coordinator) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "ControlEngine", "Start",
			"start engine")
	}
	defer e.running.Store(false)
	defer e.setStatus(StatusOffline)

	if !e.sleep(ctx, sd, e.warmup) {
		return ctx.Err()
	}

	for {
		stop, err := e.runControlLoop(ctx, sd)
		if stop {
			return err
		}
		e.logger.Error("Control loop failed, retrying",
			"server", e.serverAddr,
			"retry_in", e.retryDelay,
			"error", err)
		e.setStatus(StatusOffline)

		if !e.sleep(ctx, sd, e.retryDelay) {
			return ctx.Err()
		}
	}
}

// sleep waits d, returning early when shutdown triggers or ctx ends. It
// reports false only for context cancellation.
func (e *ControlEngine) sleep(ctx context.Context, sd *shutdown.Coordinator, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-sd.Triggered():
		return true
	case <-ctx.Done():
		return false
	}
}

// runControlLoop runs one connection attempt. stop is true when Start
// should return (shutdown or cancellation) instead of retrying.
func (e *ControlEngine) runControlLoop(ctx context.Context, sd *shutdown.Coordinator) (stop bool, err error) {
	// Hold off process shutdown while dialing and handshaking. A
	// refused guard means shutdown already started.
	guard, err := sd.DelayGuard()
	if err != nil {
		return true, nil
	}

	e.setStatus(StatusConnecting)
	e.logger.Info("Connecting to fleet server", "server", e.serverAddr)

	conn, err := net.DialTimeout("tcp", e.serverAddr, e.dialTimeout)
	if err != nil {
		guard.Release()
		return false, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrDial, err),
			"ControlEngine", "runControlLoop", "dial "+e.serverAddr)
	}
	defer func() { _ = conn.Close() }()

	stream := protocol.NewFramed(conn)
	if err := stream.Send(protocol.NewHello(e.botID, e.metadata)); err != nil {
		// The read below will fail too and trigger the retry path.
		e.logger.Warn("Hello send failed", "error", err)
	}
	guard.Release()

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

	ticker := time.NewTicker(e.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case res := <-frames:
			if res.err != nil {
				if res.err == io.EOF {
					return false, errors.WrapTransient(errors.ErrDisconnected,
						"ControlEngine", "runControlLoop", "server closed connection")
				}
				return false, res.err
			}
			e.handleFrame(stream, res.msg)

		case <-ticker.C:
			if err := stream.Send(protocol.NewPing()); err != nil {
				return false, errors.WrapTransient(
					fmt.Errorf("%w: %v", errors.ErrWrite, err),
					"ControlEngine", "runControlLoop", "send ping")
			}

		case <-sd.Triggered():
			e.logger.Info("Control loop stopping on shutdown")
			return true, nil

		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

type frameResult struct {
	msg protocol.Message
	err error
}

// handleFrame processes one inbound message. Any inbound traffic is
// proof of a live server, so the first frame promotes the engine to
// online.
func (e *ControlEngine) handleFrame(stream *protocol.Framed, msg protocol.Message) {
	if e.Status() != StatusOnline {
		e.setStatus(StatusOnline)
		e.logger.Info("Control engine online", "server", e.serverAddr)
	}

	switch m := msg.(type) {
	case protocol.BotConfiguration:
		e.mu.Lock()
		e.lastConfig = &m
		e.mu.Unlock()
		e.fanout.Publish(m)
		e.logger.Info("Received configuration",
			"peers", len(m.PeerBots),
			"market_data", len(m.MarketData))

	case protocol.Ping:
		if err := stream.Send(protocol.NewPong(m.Timestamp)); err != nil {
			e.logger.Warn("Pong send failed", "error", err)
		}

	case protocol.Pong:
		rtt := time.Duration(time.Now().UnixNano() - m.Timestamp)
		e.logger.Debug("Pong received", "rtt", rtt)

	case protocol.Unknown:
		e.logger.Warn("Ignoring unknown frame", "type", m.TypeName)

	default:
		e.logger.Warn("Ignoring unexpected frame")
	}
}
