package announce

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/fleet"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRequiresURLAndSubject(t *testing.T) {
	logger := discardLogger()

	_, err := New("", "botvana.fleet.events", logger)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = New("nats://127.0.0.1:4222", "", logger)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestOptionsOverrideDefaults(t *testing.T) {
	s := &Sink{
		clientName:    defaultClientName,
		maxReconnects: defaultMaxReconnects,
		reconnectWait: defaultReconnectWait,
	}
	WithClientName("test-client")(s)
	WithMaxReconnects(3)(s)

	assert.Equal(t, "test-client", s.clientName)
	assert.Equal(t, 3, s.maxReconnects)
	assert.Equal(t, defaultReconnectWait, s.reconnectWait)
}

var _ fleet.EventSink = (*Sink)(nil)
