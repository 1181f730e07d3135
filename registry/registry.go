package registry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ccamateur/botvana/metric"
	"github.com/ccamateur/botvana/protocol"
)

// Registry is a concurrency-safe set of connected bot identities.
type Registry struct {
	mu   sync.Mutex
	bots map[protocol.BotID]struct{}

	connectedBots prometheus.Gauge
}

// New creates an empty registry. metrics may be nil, in which case the
// connected-bots gauge is not exported.
func New(metrics *metric.Registry) *Registry {
	r := &Registry{
		bots: make(map[protocol.BotID]struct{}),
	}

	if metrics != nil {
		r.connectedBots = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "botvana",
			Subsystem: "registry",
			Name:      "connected_bots",
			Help:      "Number of currently registered bot connections",
		})
		if err := metrics.Register("registry", "connected_bots", r.connectedBots); err != nil {
			r.connectedBots = nil
		}
	}

	return r
}

// Add inserts id into the registry. It reports whether the id was newly
// added; adding an id that is already present is a no-op.
func (r *Registry) Add(id protocol.BotID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bots[id]; exists {
		return false
	}
	r.bots[id] = struct{}{}

	if r.connectedBots != nil {
		r.connectedBots.Set(float64(len(r.bots)))
	}
	return true
}

// Remove deletes id from the registry. It reports whether the id was
// present.
func (r *Registry) Remove(id protocol.BotID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bots[id]; !exists {
		return false
	}
	delete(r.bots, id)

	if r.connectedBots != nil {
		r.connectedBots.Set(float64(len(r.bots)))
	}
	return true
}

// List returns a snapshot of the registered ids. The snapshot is safe
// to use without holding any lock and carries no ordering guarantee.
func (r *Registry) List() []protocol.BotID {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]protocol.BotID, 0, len(r.bots))
	for id := range r.bots {
		snapshot = append(snapshot, id)
	}
	return snapshot
}

// Contains reports whether id is currently registered.
func (r *Registry) Contains(id protocol.BotID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.bots[id]
	return exists
}

// Len returns the number of registered bots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.bots)
}
