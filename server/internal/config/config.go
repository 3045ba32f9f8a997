package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultListenAddr      = "127.0.0.1:8765"
	DefaultWSPath          = "/"
	DefaultHealthAddr      = "127.0.0.1:50051"
	DefaultShutdownTimeout = 10 * time.Second

	DefaultBroadcastInterval = 5 * time.Second
	DefaultPolicy            = "random"
	DefaultMinSubResources   = 1
	DefaultMaxSubResources   = 5

	DefaultSendBuffer   = 16
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 20 * time.Second
	DefaultPongWait     = 30 * time.Second
	DefaultReadLimit    = 4096
	DefaultMaxFrame     = 1 << 20
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// ListenAddr is the host:port the websocket endpoint binds to.
	ListenAddr string `yaml:"listen_addr"`

	// WSPath is the HTTP path that accepts websocket upgrades (default "/").
	WSPath string `yaml:"ws_path"`

	// HealthAddr is the host:port of the gRPC health service. Empty disables it.
	HealthAddr string `yaml:"health_addr"`

	// ShutdownTimeout bounds how long shutdown waits for sessions to flush.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Auth      AuthConfig      `yaml:"auth"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Session   SessionConfig   `yaml:"session"`
	Inventory InventoryConfig `yaml:"inventory"`
}

// AuthConfig controls client authentication for websocket upgrades and the
// gRPC health service.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header (and gRPC metadata key) carrying the key.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// BroadcastConfig controls the periodic port_update broadcast. All fields are
// applied on hot reload.
type BroadcastConfig struct {
	Interval time.Duration `yaml:"interval"`

	// Policy is one of: random | all.
	Policy string `yaml:"policy"`

	// MinSubResources and MaxSubResources bound the random policy's
	// per-switch sample.
	MinSubResources int `yaml:"min_sub_resources"`
	MaxSubResources int `yaml:"max_sub_resources"`
}

// SessionConfig holds per-connection limits. Changes need a restart.
type SessionConfig struct {
	// SendBuffer is the per-client outbound queue depth. A client whose queue
	// is full when a broadcast arrives is disconnected.
	SendBuffer int `yaml:"send_buffer"`

	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PingInterval must be shorter than PongWait.
	PingInterval time.Duration `yaml:"ping_interval"`
	PongWait     time.Duration `yaml:"pong_wait"`

	// ReadLimit is the largest inbound frame decoded, in bytes. Larger
	// frames are discarded and the connection stays open.
	ReadLimit int64 `yaml:"read_limit"`

	// MaxFrame is the hard cap; a frame above it closes the connection.
	MaxFrame int64 `yaml:"max_frame"`
}

// InventoryConfig lists the monitored switches. Applied on hot reload.
type InventoryConfig struct {
	// Seed fixes the simulator's random source. Zero seeds from the clock.
	Seed     int64    `yaml:"seed"`
	Entities []Entity `yaml:"entities"`
}

// Entity is one monitored switch.
type Entity struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	SubResources int    `yaml:"sub_resources"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values. It is what the
// server runs with when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			WSPath:          DefaultWSPath,
			HealthAddr:      DefaultHealthAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
			Broadcast: BroadcastConfig{
				Interval:        DefaultBroadcastInterval,
				Policy:          DefaultPolicy,
				MinSubResources: DefaultMinSubResources,
				MaxSubResources: DefaultMaxSubResources,
			},
			Session: SessionConfig{
				SendBuffer:   DefaultSendBuffer,
				WriteTimeout: DefaultWriteTimeout,
				PingInterval: DefaultPingInterval,
				PongWait:     DefaultPongWait,
				ReadLimit:    DefaultReadLimit,
				MaxFrame:     DefaultMaxFrame,
			},
			Inventory: InventoryConfig{
				Entities: defaultEntities(),
			},
		},
	}
}

// defaultEntities is the three-switch lab monitored when the config file
// does not list any. A non-empty list in the file replaces it entirely.
func defaultEntities() []Entity {
	return []Entity{
		{ID: "192.168.1.1", Name: "Main Switch", SubResources: 24},
		{ID: "192.168.1.10", Name: "Office Switch", SubResources: 24},
		{ID: "192.168.1.20", Name: "Server Switch", SubResources: 24},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if s.WSPath == "" || s.WSPath[0] != '/' {
		return fmt.Errorf("server.ws_path %q must start with /", s.WSPath)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}

	if err := s.Broadcast.Validate(); err != nil {
		return err
	}

	if s.Session.SendBuffer <= 0 {
		return fmt.Errorf("server.session.send_buffer must be positive")
	}
	if s.Session.WriteTimeout <= 0 {
		return fmt.Errorf("server.session.write_timeout must be positive")
	}
	if s.Session.PingInterval <= 0 || s.Session.PingInterval >= s.Session.PongWait {
		return fmt.Errorf("server.session.ping_interval must be positive and below pong_wait (%v)", s.Session.PongWait)
	}
	if s.Session.ReadLimit <= 0 {
		return fmt.Errorf("server.session.read_limit must be positive")
	}
	if s.Session.MaxFrame < s.Session.ReadLimit {
		return fmt.Errorf("server.session.max_frame must be at least read_limit (%d)", s.Session.ReadLimit)
	}

	seen := make(map[string]bool, len(s.Inventory.Entities))
	for i, e := range s.Inventory.Entities {
		if e.ID == "" {
			return fmt.Errorf("server.inventory.entities[%d]: id is required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("server.inventory.entities[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		if e.SubResources <= 0 {
			return fmt.Errorf("server.inventory.entities[%d] %q: sub_resources must be positive", i, e.ID)
		}
	}
	return nil
}

// Validate checks the broadcast section on its own, for hot reload.
func (b BroadcastConfig) Validate() error {
	if b.Interval <= 0 {
		return fmt.Errorf("server.broadcast.interval must be positive")
	}
	switch b.Policy {
	case "random", "all", "":
	default:
		return fmt.Errorf("server.broadcast.policy %q unknown: want random|all", b.Policy)
	}
	if b.MinSubResources < 0 || b.MaxSubResources < b.MinSubResources {
		return fmt.Errorf("server.broadcast: min_sub_resources %d / max_sub_resources %d out of order",
			b.MinSubResources, b.MaxSubResources)
	}
	return nil
}
