package config

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ccamateur/botvana/errors"
	"github.com/ccamateur/botvana/protocol"
)

// ServerConfig configures the fleet-server process.
type ServerConfig struct {
	// ListenAddr is the TCP address bots connect to.
	ListenAddr string `yaml:"listen_addr"`

	// MaxConnections bounds concurrently handled bot connections.
	MaxConnections int `yaml:"max_connections"`

	// MarketData and Indicators are handed to every bot in its
	// BotConfiguration reply.
	MarketData []string                   `yaml:"market_data"`
	Indicators []protocol.IndicatorConfig `yaml:"indicators"`

	NATS     NATSConfig     `yaml:"nats"`
	Postgres PostgresConfig `yaml:"postgres"`
	Ops      OpsConfig      `yaml:"ops"`
}

// NATSConfig configures the optional fleet-event announcer. An empty
// URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// PostgresConfig configures the optional fleet-event journal. An empty
// DSN disables it.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// OpsConfig configures the HTTP endpoint serving Prometheus metrics and
// the websocket fleet-event feed. An empty address disables it.
type OpsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// BotConfig configures a botnode process.
type BotConfig struct {
	// BotID is this bot's identity. Generated when empty.
	BotID string `yaml:"bot_id"`

	// ServerAddr is the fleet-server address to dial.
	ServerAddr string `yaml:"server_addr"`
}

func (c *ServerConfig) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:7978"
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 256
	}
	if len(c.MarketData) == 0 {
		c.MarketData = []string{"ETH/USD"}
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = "botvana.fleet.events"
	}
}

// Validate checks the server config for usable values.
func (c *ServerConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: listen_addr %q", errors.ErrInvalidConfig, c.ListenAddr),
			"ServerConfig", "Validate", "listen address check")
	}
	if c.MaxConnections < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: max_connections must be positive", errors.ErrInvalidConfig),
			"ServerConfig", "Validate", "connection limit check")
	}
	for _, ind := range c.Indicators {
		if ind.Name == "" || ind.Symbol == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: indicator requires name and symbol", errors.ErrInvalidConfig),
				"ServerConfig", "Validate", "indicator check")
		}
	}
	return nil
}

func (c *BotConfig) applyDefaults() {
	if c.BotID == "" {
		c.BotID = protocol.NewBotID().String()
	}
	if c.ServerAddr == "" {
		c.ServerAddr = "127.0.0.1:7978"
	}
}

// Validate checks the bot config for usable values.
func (c *BotConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.ServerAddr); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: server_addr %q", errors.ErrInvalidConfig, c.ServerAddr),
			"BotConfig", "Validate", "server address check")
	}
	return nil
}

// LoadServer reads, defaults and validates a fleet-server config file.
func LoadServer(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadBot reads, defaults and validates a botnode config file.
func LoadBot(path string) (*BotConfig, error) {
	var cfg BotConfig
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultServer returns a server config with all defaults applied.
func DefaultServer() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg
}

// DefaultBot returns a bot config with all defaults applied.
func DefaultBot() *BotConfig {
	cfg := &BotConfig{}
	cfg.applyDefaults()
	return cfg
}

func load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "config", "load", "read config file")
	}

	// Expand ${VAR} so secrets like the Postgres DSN can stay out of
	// the file.
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return errors.WrapInvalid(err, "config", "load", "parse yaml")
	}
	return nil
}
