package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bigtwo/internal/transport"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application settings.
type Config struct {
	Player  PlayerConfig  `toml:"player"`
	Game    GameConfig    `toml:"game"`
	Network NetworkConfig `toml:"network"`
	Log     LogConfig     `toml:"log"`
}

// PlayerConfig identifies the local player.
type PlayerConfig struct {
	Name string `toml:"name"`
}

// GameConfig contains table and AI settings.
type GameConfig struct {
	Strategy  string `toml:"strategy"`   // simple, smart or lua
	LuaScript string `toml:"lua_script"` // Script path for the lua strategy
	AIDelay   string `toml:"ai_delay"`   // Pause before each AI move (e.g., "1s")
	Seed      int64  `toml:"seed"`       // Shuffle seed, 0 for entropy
}

// NetworkConfig contains connection limits and retry budgets.
type NetworkConfig struct {
	Transport        string `toml:"transport"` // tcp or websocket
	Listen           string `toml:"listen"`
	WSPath           string `toml:"ws_path"`
	MaxPeers         int    `toml:"max_peers"`
	AcceptRetryDelay string `toml:"accept_retry_delay"`
	CapacityBackoff  string `toml:"capacity_backoff"`
	ConnectAttempts  int    `toml:"connect_attempts"`
	ConnectDelay     string `toml:"connect_delay"`
	WriteAttempts    int    `toml:"write_attempts"`
	WriteDelay       string `toml:"write_delay"`
	WriteTimeout     string `toml:"write_timeout"`
	ReadBufferSize   int    `toml:"read_buffer_size"`
	DrainTimeout     string `toml:"drain_timeout"`
	JoinWindow       string `toml:"join_window"` // Duplicate JOIN_GAME suppression window
	JoinAttempts     int    `toml:"join_attempts"`
	JoinDelay        string `toml:"join_delay"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Name: "Player",
		},
		Game: GameConfig{
			Strategy: "smart",
			AIDelay:  "0s",
		},
		Network: NetworkConfig{
			Transport:        TransportTCP,
			Listen:           ":7777",
			WSPath:           "/bigtwo",
			MaxPeers:         3,
			AcceptRetryDelay: "3s",
			CapacityBackoff:  "5s",
			ConnectAttempts:  3,
			ConnectDelay:     "2s",
			WriteAttempts:    3,
			WriteDelay:       "1s",
			WriteTimeout:     "5s",
			ReadBufferSize:   1024,
			DrainTimeout:     "2s",
			JoinWindow:       "3s",
			JoinAttempts:     3,
			JoinDelay:        "500ms",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	durations := map[string]string{
		"game.ai_delay":              c.Game.AIDelay,
		"network.accept_retry_delay": c.Network.AcceptRetryDelay,
		"network.capacity_backoff":   c.Network.CapacityBackoff,
		"network.connect_delay":      c.Network.ConnectDelay,
		"network.write_delay":        c.Network.WriteDelay,
		"network.write_timeout":      c.Network.WriteTimeout,
		"network.drain_timeout":      c.Network.DrainTimeout,
		"network.join_window":        c.Network.JoinWindow,
		"network.join_delay":         c.Network.JoinDelay,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s cannot be negative: %s", key, value)
		}
	}

	switch strings.ToLower(c.Game.Strategy) {
	case "simple", "smart":
	case "lua":
		if c.Game.LuaScript == "" {
			return fmt.Errorf("game.lua_script is required for the lua strategy")
		}
	default:
		return fmt.Errorf("unknown game.strategy %q", c.Game.Strategy)
	}

	switch c.Network.Transport {
	case TransportTCP, TransportWebSocket:
	default:
		return fmt.Errorf("unknown network.transport %q", c.Network.Transport)
	}

	if c.Network.MaxPeers < 1 || c.Network.MaxPeers > 3 {
		return fmt.Errorf("network.max_peers must be between 1 and 3: %d", c.Network.MaxPeers)
	}
	for key, n := range map[string]int{
		"network.connect_attempts": c.Network.ConnectAttempts,
		"network.write_attempts":   c.Network.WriteAttempts,
		"network.join_attempts":    c.Network.JoinAttempts,
		"network.read_buffer_size": c.Network.ReadBufferSize,
	} {
		if n < 1 {
			return fmt.Errorf("%s must be positive: %d", key, n)
		}
	}
	return nil
}

// GetAIDelay returns the AI move delay as a duration.
func (c *Config) GetAIDelay() time.Duration {
	return mustDuration(c.Game.AIDelay)
}

// GetJoinWindow returns the duplicate-join suppression window.
func (c *Config) GetJoinWindow() time.Duration {
	return mustDuration(c.Network.JoinWindow)
}

// GetJoinDelay returns the pause between client JOIN_GAME attempts.
func (c *Config) GetJoinDelay() time.Duration {
	return mustDuration(c.Network.JoinDelay)
}

// TransportConfig converts the network section for the connection manager.
func (c *Config) TransportConfig() transport.Config {
	cfg := transport.DefaultConfig()
	cfg.MaxPeers = c.Network.MaxPeers
	cfg.AcceptRetryDelay = mustDuration(c.Network.AcceptRetryDelay)
	cfg.CapacityBackoff = mustDuration(c.Network.CapacityBackoff)
	cfg.ConnectAttempts = c.Network.ConnectAttempts
	cfg.ConnectDelay = mustDuration(c.Network.ConnectDelay)
	cfg.WriteAttempts = c.Network.WriteAttempts
	cfg.WriteDelay = mustDuration(c.Network.WriteDelay)
	cfg.WriteTimeout = mustDuration(c.Network.WriteTimeout)
	cfg.ReadBufferSize = c.Network.ReadBufferSize
	cfg.DrainTimeout = mustDuration(c.Network.DrainTimeout)
	return cfg
}

// mustDuration parses a duration already checked by Validate; invalid values
// read as zero.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
