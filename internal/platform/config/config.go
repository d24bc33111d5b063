// Package config loads the server configuration from TOML.
// Channel buffers and connection limits that used to be hard-coded tuning
// constants live in the [server] section.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Profiles select a preset before the file is applied.
const (
	ProfileDefault = "default"
	ProfileClassic = "classic"
)

// SecretEnv overrides wallet.jwt_secret so secrets stay out of files.
const SecretEnv = "DEFICITY_JWT_SECRET"

// Duration is a time.Duration written as a string ("3s", "1m").
type Duration struct {
	time.Duration
}

// D wraps a time.Duration.
func D(d time.Duration) Duration {
	return Duration{d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

type Config struct {
	Game   GameConfig   `toml:"game"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	Ledger LedgerConfig `toml:"ledger"`
	Wallet WalletConfig `toml:"wallet"`
}

type GameConfig struct {
	Profile        string   `toml:"profile"`
	GridSize       int      `toml:"grid_size"`
	StartingTokens int      `toml:"starting_tokens"`
	TickInterval   Duration `toml:"tick_interval"`
	EventInterval  Duration `toml:"event_interval"`
	HistorySize    int      `toml:"history_size"`
	WeightedEvents bool     `toml:"weighted_events"`
	Catalog        string   `toml:"catalog"` // YAML catalog file, empty for the built-in table
}

type ServerConfig struct {
	Addr              string   `toml:"addr"`
	AllowedOrigins    []string `toml:"allowed_origins"`
	ClientSendBuffer  int      `toml:"client_send_buffer"`
	BroadcastBuffer   int      `toml:"broadcast_buffer"`
	MaxClients        int      `toml:"max_clients"`
	EventPollInterval Duration `toml:"event_poll_interval"`
	EventRetention    int      `toml:"event_retention"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type LedgerConfig struct {
	Path string `toml:"path"` // empty disables the SQLite journal
}

type WalletConfig struct {
	Secret   string   `toml:"jwt_secret"`
	Issuer   string   `toml:"issuer"`
	TokenTTL Duration `toml:"token_ttl"`
}

// DefaultConfig is the live game: 3 second ticks on a 20x20 grid.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			Profile:        ProfileDefault,
			GridSize:       20,
			StartingTokens: 1000,
			TickInterval:   D(3 * time.Second),
			EventInterval:  D(45 * time.Second),
			HistorySize:    24,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ClientSendBuffer:  64,
			BroadcastBuffer:   256,
			MaxClients:        200,
			EventPollInterval: D(200 * time.Millisecond),
			EventRetention:    1024,
			ShutdownTimeout:   D(10 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Wallet: WalletConfig{
			Issuer:   "defi-city",
			TokenTTL: D(24 * time.Hour),
		},
	}
}

// ClassicConfig is the slower variant: one tick per minute on a 12x12 grid.
func ClassicConfig() *Config {
	cfg := DefaultConfig()
	cfg.Game.Profile = ProfileClassic
	cfg.Game.GridSize = 12
	cfg.Game.TickInterval = D(time.Minute)
	cfg.Game.EventInterval = D(5 * time.Minute)
	return cfg
}

// ForProfile returns the preset for name.
func ForProfile(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "", ProfileDefault:
		return DefaultConfig(), nil
	case ProfileClassic:
		return ClassicConfig(), nil
	}
	return nil, fmt.Errorf("unknown profile %q", name)
}

// Load reads a TOML file. Keys absent from the file keep the value of the
// preset named by game.profile.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the selected preset and validates the result.
func Parse(data []byte) (*Config, error) {
	var head struct {
		Game struct {
			Profile string `toml:"profile"`
		} `toml:"game"`
	}
	if err := toml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	cfg, err := ForProfile(head.Game.Profile)
	if err != nil {
		return nil, err
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if s := os.Getenv(SecretEnv); s != "" {
		c.Wallet.Secret = s
	}
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Game.GridSize < 1 {
		errs = append(errs, fmt.Errorf("game.grid_size must be positive"))
	}
	if c.Game.StartingTokens < 0 {
		errs = append(errs, fmt.Errorf("game.starting_tokens must be >= 0"))
	}
	if c.Game.TickInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("game.tick_interval must be positive"))
	}
	if c.Game.EventInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("game.event_interval must be positive"))
	}
	if c.Game.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("game.history_size must be positive"))
	}
	if c.Server.ClientSendBuffer < 1 || c.Server.BroadcastBuffer < 1 {
		errs = append(errs, fmt.Errorf("server buffers must be positive"))
	}
	if c.Server.EventPollInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("server.event_poll_interval must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
