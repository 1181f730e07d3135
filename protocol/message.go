package protocol

import (
	"time"

	"github.com/google/uuid"
)

// BotID is the opaque unique identifier of a bot process. It is used as
// the registry key on the server and as the subject of Hello and PeerBot
// messages.
type BotID string

// NewBotID generates a random BotID.
func NewBotID() BotID {
	return BotID(uuid.NewString())
}

// String returns the id as a plain string.
func (id BotID) String() string {
	return string(id)
}

// Type identifies a message variant on the wire.
type Type string

// Wire message types
const (
	TypeHello            Type = "hello"
	TypePing             Type = "ping"
	TypePong             Type = "pong"
	TypeBotConfiguration Type = "bot_configuration"
)

// Message is the closed set of frames exchanged between botnode and
// fleet-server. Concrete types are Hello, Ping, Pong, BotConfiguration
// and Unknown.
type Message interface {
	messageType() Type
}

// BotMetadata describes the bot process sending a Hello.
type BotMetadata struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
}

// Hello is the one-time registration message identifying a bot to the
// server. Exactly one Hello is valid per connection lifetime.
type Hello struct {
	BotID    BotID       `json:"bot_id"`
	Metadata BotMetadata `json:"metadata"`
}

func (Hello) messageType() Type { return TypeHello }

// NewHello builds a Hello for the given bot identity.
func NewHello(id BotID, meta BotMetadata) Hello {
	return Hello{BotID: id, Metadata: meta}
}

// Ping is a heartbeat frame carrying the sender's clock in unix
// nanoseconds.
type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

func (Ping) messageType() Type { return TypePing }

// NewPing builds a Ping stamped with the current time.
func NewPing() Ping {
	return Ping{Timestamp: time.Now().UnixNano()}
}

// Pong answers a Ping, echoing its timestamp so the pinging side can
// measure round-trip time.
type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

func (Pong) messageType() Type { return TypePong }

// NewPong builds a Pong echoing the given Ping timestamp.
func NewPong(timestamp int64) Pong {
	return Pong{Timestamp: timestamp}
}

// PeerBot is one entry of the peer topology handed to a newly joined
// bot; there is one per bot registered at Hello-processing time.
type PeerBot struct {
	BotID BotID `json:"bot_id"`
}

// IndicatorConfig describes one indicator a bot should compute.
type IndicatorConfig struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Period int    `json:"period"`
}

// BotConfiguration is the configuration payload built by the server in
// response to a valid Hello. It is immutable once sent; the control
// engine retains the most recent one received.
type BotConfiguration struct {
	BotID      BotID             `json:"bot_id"`
	PeerBots   []PeerBot         `json:"peer_bots"`
	MarketData []string          `json:"market_data"`
	Indicators []IndicatorConfig `json:"indicators"`
}

func (BotConfiguration) messageType() Type { return TypeBotConfiguration }

// Unknown is returned by the codec for frames whose type is not part of
// this vocabulary. Handlers log and ignore it.
type Unknown struct {
	TypeName string
}

func (Unknown) messageType() Type { return Type("") }
