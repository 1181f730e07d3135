package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndUnregister(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botvana",
		Subsystem: "test",
		Name:      "events_total",
		Help:      "Test counter",
	})

	require.NoError(t, registry.Register("server", "events", counter))

	// Same service/metric pair must be rejected.
	err := registry.Register("server", "events", counter)
	assert.Error(t, err)

	assert.True(t, registry.Unregister("server", "events"))
	assert.False(t, registry.Unregister("server", "events"))
}

func TestHandlerServesMetrics(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "botvana",
		Subsystem: "test",
		Name:      "handled_total",
		Help:      "Test counter",
	})
	require.NoError(t, registry.Register("server", "handled", counter))
	counter.Inc()

	srv := httptest.NewServer(registry.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
