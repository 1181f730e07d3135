package journal

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/fleet"
)

const schema = `
CREATE TABLE IF NOT EXISTS fleet_events (
	id          BIGSERIAL PRIMARY KEY,
	event_type  TEXT        NOT NULL,
	bot_id      TEXT        NOT NULL,
	reason      TEXT        NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
)`

const insertEvent = `
INSERT INTO fleet_events (event_type, bot_id, reason, occurred_at)
VALUES ($1, $2, $3, $4)`

// Journal is an append-only record of fleet events in Postgres. It
// implements fleet.EventSink.
type Journal struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to Postgres at dsn, verifies the connection and ensures
// the fleet_events table exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Journal, error) {
	if dsn == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Journal", "Open",
			"check postgres dsn")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Journal", "Open", "parse dsn")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.WrapTransient(err, "Journal", "Open", "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.WrapTransient(err, "Journal", "Open", "ping database")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errors.WrapTransient(err, "Journal", "Open", "ensure schema")
	}

	return &Journal{pool: pool, logger: logger}, nil
}

// Publish appends one event row.
func (j *Journal) Publish(ctx context.Context, ev fleet.Event) error {
	_, err := j.pool.Exec(ctx, insertEvent,
		string(ev.Type), ev.BotID.String(), ev.Reason, ev.Timestamp)
	if err != nil {
		return errors.WrapTransient(err, "Journal", "Publish", "insert event")
	}
	return nil
}

// Close releases the connection pool.
func (j *Journal) Close() {
	j.pool.Close()
}
