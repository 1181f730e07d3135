package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ccamateur/botvana/shutdown"
)

// Runner starts a set of engines and runs them until all have stopped.
// The first engine failure triggers shutdown so its siblings stop too,
// and becomes the Runner's return value.
type Runner struct {
	sd      *shutdown.Coordinator
	logger  *slog.Logger
	engines []Runnable
}

// NewRunner creates a runner driving shutdown through sd.
func NewRunner(sd *shutdown.Coordinator, logger *slog.Logger) *Runner {
	return &Runner{sd: sd, logger: logger}
}

// Add registers an engine to run. Add must not be called after Run.
func (r *Runner) Add(e Runnable) {
	r.engines = append(r.engines, e)
}

// Run starts every registered engine and blocks until all return.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, e := range r.engines {
		g.Go(func() error {
			r.logger.Info("Engine starting", "engine", e.Name())
			err := e.Start(ctx, r.sd)
			if err != nil {
				r.logger.Error("Engine failed", "engine", e.Name(), "error", err)
				r.sd.Trigger()
				return err
			}
			r.logger.Info("Engine stopped", "engine", e.Name())
			return nil
		})
	}

	return g.Wait()
}
