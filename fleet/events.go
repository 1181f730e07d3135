package fleet

import (
	"context"
	"log/slog"
	"time"

	"github.com/ccamateur/botvana/protocol"
)

// EventType identifies a fleet topology change.
type EventType string

// Fleet event types
const (
	EventBotConnected    EventType = "bot_connected"
	EventBotDisconnected EventType = "bot_disconnected"
)

// Disconnect reasons carried on EventBotDisconnected events.
const (
	ReasonCleanClose     = "clean_close"
	ReasonDuplicateHello = "duplicate_hello"
	ReasonReadError      = "read_error"
	ReasonWriteError     = "write_error"
	ReasonTimeout        = "timeout"
	ReasonShutdown       = "shutdown"
)

// Event records one bot joining or leaving the fleet.
type Event struct {
	Type      EventType      `json:"type"`
	BotID     protocol.BotID `json:"bot_id"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Connected builds a connected event for id stamped with the current time.
func Connected(id protocol.BotID) Event {
	return Event{Type: EventBotConnected, BotID: id, Timestamp: time.Now().UTC()}
}

// Disconnected builds a disconnected event for id with the given reason.
func Disconnected(id protocol.BotID, reason string) Event {
	return Event{Type: EventBotDisconnected, BotID: id, Reason: reason, Timestamp: time.Now().UTC()}
}

// EventSink consumes fleet events. Implementations must be safe for
// concurrent callers; Publish should not block on slow downstreams.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout forwards each event to every sink, logging and skipping sinks
// that fail.
type Fanout struct {
	sinks  []EventSink
	logger *slog.Logger
}

// NewFanout creates a fanout over the given sinks. A nil *Fanout is
// valid and publishes nothing, so callers never need a nil check.
func NewFanout(logger *slog.Logger, sinks ...EventSink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger}
}

// Publish delivers ev to all sinks.
func (f *Fanout) Publish(ctx context.Context, ev Event) {
	if f == nil {
		return
	}
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			f.logger.Error("Fleet event sink failed",
				"event", ev.Type,
				"bot_id", ev.BotID,
				"error", err)
		}
	}
}

// LogSink writes fleet events to the server log. It is always part of
// the fanout so topology changes are observable without any external
// sink configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish implements EventSink.
func (s *LogSink) Publish(_ context.Context, ev Event) error {
	if ev.Type == EventBotDisconnected {
		s.logger.Info("Bot disconnected", "bot_id", ev.BotID, "reason", ev.Reason)
		return nil
	}
	s.logger.Info("Bot connected", "bot_id", ev.BotID)
	return nil
}
