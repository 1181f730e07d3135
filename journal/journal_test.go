package journal

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/fleet"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "", slog.Default())
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestOpenRejectsMalformedDSN(t *testing.T) {
	_, err := Open(context.Background(), "not a dsn ://", slog.Default())
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

var _ fleet.EventSink = (*Journal)(nil)
