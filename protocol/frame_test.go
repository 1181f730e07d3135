package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccamateur/botvana/errors"
)

func TestFramedRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"hello", NewHello("bot-1", BotMetadata{Hostname: "host-a", Version: "0.1.0"})},
		{"ping", Ping{Timestamp: 12345}},
		{"pong", Pong{Timestamp: 12345}},
		{"configuration", BotConfiguration{
			BotID:      "bot-1",
			PeerBots:   []PeerBot{{BotID: "bot-1"}, {BotID: "bot-2"}},
			MarketData: []string{"ETH/USD"},
			Indicators: []IndicatorConfig{{Name: "sma", Symbol: "ETH/USD", Period: 20}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			framed := NewFramed(&buf)

			require.NoError(t, framed.Send(tt.msg))

			got, err := framed.Next()
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestFramedMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	framed := NewFramed(&buf)

	require.NoError(t, framed.Send(Ping{Timestamp: 1}))
	require.NoError(t, framed.Send(Ping{Timestamp: 2}))

	first, err := framed.Next()
	require.NoError(t, err)
	assert.Equal(t, Ping{Timestamp: 1}, first)

	second, err := framed.Next()
	require.NoError(t, err)
	assert.Equal(t, Ping{Timestamp: 2}, second)

	_, err = framed.Next()
	assert.Equal(t, io.EOF, err)
}

func TestFramedCleanEOF(t *testing.T) {
	framed := NewFramed(bytes.NewBuffer(nil))

	_, err := framed.Next()
	assert.Equal(t, io.EOF, err)
}

func TestFramedTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	framed := NewFramed(&buf)
	require.NoError(t, framed.Send(NewPing()))

	// Cut the stream mid-frame.
	truncated := NewFramed(bytes.NewBuffer(buf.Bytes()[:buf.Len()-3]))

	_, err := truncated.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.True(t, errors.IsTransient(err))
}

func TestFramedOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], MaxFrameSize+1)
	buf.Write(header[:])

	framed := NewFramed(&buf)
	_, err := framed.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFrameTooLarge)
}

func TestFramedUnknownType(t *testing.T) {
	body, err := json.Marshal(envelope{Type: "market_snapshot", Payload: []byte(`{"a":1}`)})
	require.NoError(t, err)

	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	framed := NewFramed(&buf)
	msg, err := framed.Next()
	require.NoError(t, err)
	assert.Equal(t, Unknown{TypeName: "market_snapshot"}, msg)
}

func TestFramedGarbageBody(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	body := []byte("not json at all")
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	framed := NewFramed(&buf)
	_, err := framed.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDecodeFailed)
	assert.True(t, errors.IsInvalid(err))
}

func TestNewBotIDUnique(t *testing.T) {
	a := NewBotID()
	b := NewBotID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestPongEchoesPingTimestamp(t *testing.T) {
	ping := NewPing()
	pong := NewPong(ping.Timestamp)
	assert.Equal(t, ping.Timestamp, pong.Timestamp)
}
