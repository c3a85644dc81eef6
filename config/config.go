package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the daemon settings plus the defaults applied to newly
// created vaults. Per-vault policy (tiers, windows, thresholds) is configured
// at runtime through the owner API; these are only the starting values.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	DefaultQuorum            uint32 `toml:"DefaultQuorum"`
	TimeLockDelaySeconds     int64  `toml:"TimeLockDelaySeconds"`
	RageQuitDelaySeconds     int64  `toml:"RageQuitDelaySeconds"`
	LargeWithdrawalThreshold string `toml:"LargeWithdrawalThreshold"`
	EmergencyFreezeThreshold uint32 `toml:"EmergencyFreezeThreshold"`
}

const (
	defaultListenAddress = ":8645"
	defaultDataDir       = "./vaultdata"
	// Thirty days, matching the protocol-wide rage-quit constant.
	defaultRageQuitDelay = 30 * 24 * 60 * 60
	defaultTimeLockDelay = 24 * 60 * 60
)

// Default returns a configuration with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration file, creating one with defaults when it does
// not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = defaultListenAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if c.DefaultQuorum == 0 {
		c.DefaultQuorum = 2
	}
	if c.TimeLockDelaySeconds == 0 {
		c.TimeLockDelaySeconds = defaultTimeLockDelay
	}
	if c.RageQuitDelaySeconds == 0 {
		c.RageQuitDelaySeconds = defaultRageQuitDelay
	}
}

// Validate rejects configurations that would produce an unusable engine.
func (c *Config) Validate() error {
	if c.TimeLockDelaySeconds < 0 {
		return fmt.Errorf("config: TimeLockDelaySeconds must not be negative")
	}
	if c.RageQuitDelaySeconds <= 0 {
		return fmt.Errorf("config: RageQuitDelaySeconds must be positive")
	}
	if c.EmergencyFreezeThreshold > 0 && c.EmergencyFreezeThreshold > c.DefaultQuorum {
		return fmt.Errorf("config: EmergencyFreezeThreshold must not exceed DefaultQuorum")
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create default %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
