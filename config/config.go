package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/replaysim/journal"
	"github.com/rustyeddy/replaysim/market"
	"gopkg.in/yaml.v3"
)

// Config represents the complete simulator configuration
type Config struct {
	Account     AccountConfig       `json:"account" yaml:"account"`
	Session     SessionConfig       `json:"session" yaml:"session"`
	Journal     JournalConfig       `json:"journal" yaml:"journal"`
	Server      ServerConfig        `json:"server" yaml:"server"`
	Log         LogConfig           `json:"log" yaml:"log"`
	Instruments []market.Instrument `json:"instruments,omitempty" yaml:"instruments,omitempty"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
}

// SessionConfig picks what is replayed and how fast
type SessionConfig struct {
	Instrument string `json:"instrument" yaml:"instrument"`
	Timeframe  string `json:"timeframe" yaml:"timeframe"`
	Bars       int    `json:"bars" yaml:"bars"`
	Warmup     int    `json:"warmup" yaml:"warmup"`
	SpeedMS    int    `json:"speed_ms" yaml:"speed_ms"`
	Seed       int64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	Overlay    string `json:"overlay,omitempty" yaml:"overlay,omitempty"`
}

// Interval is the tick period.
func (s SessionConfig) Interval() time.Duration {
	return time.Duration(s.SpeedMS) * time.Millisecond
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig is the websocket gateway listener
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	MetricsPath string `json:"metrics_path" yaml:"metrics_path"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a file (YAML or JSON). ${VAR}
// references are expanded from the environment first.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(expanded, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML or JSON based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.StartingBalance <= 0 {
		return fmt.Errorf("account.starting_balance must be positive")
	}

	reg, err := c.Registry()
	if err != nil {
		return fmt.Errorf("instruments: %w", err)
	}
	if c.Session.Instrument == "" {
		return fmt.Errorf("session.instrument is required")
	}
	if _, err := reg.Lookup(c.Session.Instrument); err != nil {
		return fmt.Errorf("session.instrument: %w", err)
	}
	if c.Session.Overlay != "" {
		if _, err := reg.Lookup(c.Session.Overlay); err != nil {
			return fmt.Errorf("session.overlay: %w", err)
		}
	}
	if _, err := market.ParseTimeframe(c.Session.Timeframe); err != nil {
		return fmt.Errorf("session.timeframe: %w", err)
	}
	if c.Session.Bars < 1 {
		return fmt.Errorf("session.bars must be at least 1")
	}
	if c.Session.Warmup < 0 {
		return fmt.Errorf("session.warmup must not be negative")
	}
	if c.Session.SpeedMS <= 0 {
		return fmt.Errorf("session.speed_ms must be positive")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Registry is the built-in instrument table with the configured
// instruments added or overriding.
func (c *Config) Registry() (*market.Registry, error) {
	return market.NewRegistry(c.Instruments...)
}

// OpenJournal builds the configured journal. "none" records nothing.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "csv":
		return journal.NewCSV(c.Journal.TradesFile, c.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath)
	case "", "none":
		return journal.Nop{}, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			StartingBalance: 100000,
		},
		Session: SessionConfig{
			Instrument: "rb2501",
			Timeframe:  "5m",
			Bars:       3000,
			Warmup:     200,
			SpeedMS:    1000,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsPath: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
