// Package config loads guessbot settings from an optional HCL file and, for
// gateway credentials, from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/guessbot/internal/records"
	"github.com/lox/guessbot/internal/session"
)

// Config represents the complete configuration file.
type Config struct {
	Server  *ServerSettings `hcl:"server,block"`
	Game    *GameSettings   `hcl:"game,block"`
	Records *RecordSettings `hcl:"records,block"`
	Limits  *LimitSettings  `hcl:"limits,block"`
}

// ServerSettings configures the websocket gateway.
type ServerSettings struct {
	Address string `hcl:"address,optional"`
	AuthURL string `hcl:"auth_url,optional"`
}

// GameSettings configures the game rules.
type GameSettings struct {
	MaxAttempts int    `hcl:"max_attempts,optional"`
	Seed        *int64 `hcl:"seed,optional"`
}

// RecordSettings configures record keeping.
type RecordSettings struct {
	HolderPolicy string `hcl:"holder_policy,optional"`
}

// LimitSettings configures per-user rate limiting of inbound events.
type LimitSettings struct {
	EventsPerSecond float64 `hcl:"events_per_second,optional"`
	Burst           int     `hcl:"burst,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: &ServerSettings{
			Address: ":8080",
		},
		Game: &GameSettings{
			MaxAttempts: session.DefaultMaxAttempts,
		},
		Records: &RecordSettings{
			HolderPolicy: string(records.HolderFirst),
		},
		Limits: &LimitSettings{
			EventsPerSecond: 5,
			Burst:           10,
		},
	}
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Server == nil {
		c.Server = defaults.Server
	}
	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}

	if c.Game == nil {
		c.Game = defaults.Game
	}
	if c.Game.MaxAttempts == 0 {
		c.Game.MaxAttempts = defaults.Game.MaxAttempts
	}

	if c.Records == nil {
		c.Records = defaults.Records
	}
	if c.Records.HolderPolicy == "" {
		c.Records.HolderPolicy = defaults.Records.HolderPolicy
	}

	if c.Limits == nil {
		c.Limits = defaults.Limits
	}
	if c.Limits.EventsPerSecond == 0 {
		c.Limits.EventsPerSecond = defaults.Limits.EventsPerSecond
	}
	if c.Limits.Burst == 0 {
		c.Limits.Burst = defaults.Limits.Burst
	}
}

// Validate checks the configuration for values the game cannot run with.
func (c *Config) Validate() error {
	if c.Game.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.Game.MaxAttempts)
	}
	if _, err := records.ParseHolderPolicy(c.Records.HolderPolicy); err != nil {
		return err
	}
	if c.Limits.EventsPerSecond < 0 {
		return fmt.Errorf("events_per_second cannot be negative")
	}
	if c.Limits.Burst < 1 {
		return fmt.Errorf("burst must be positive, got %d", c.Limits.Burst)
	}
	return nil
}

// HolderPolicy returns the parsed record holder policy.
func (c *Config) HolderPolicy() records.HolderPolicy {
	p, err := records.ParseHolderPolicy(c.Records.HolderPolicy)
	if err != nil {
		return records.HolderFirst
	}
	return p
}
