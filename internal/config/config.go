// Package config provides configuration management for the simulator.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Sim     SimConfig     `mapstructure:"sim"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DataConfig holds price-data configuration.
type DataConfig struct {
	Dir    string `mapstructure:"dir"`     // CSV price-file directory
	DBPath string `mapstructure:"db_path"` // SQLite bar cache
}

// SimConfig holds simulation configuration.
type SimConfig struct {
	WorkerCount  int    `mapstructure:"workers"`
	StrategyFile string `mapstructure:"strategy_file"`
	MatchMode    string `mapstructure:"match_mode"` // "lifo" or "fifo"
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/plumsim"
	}
	return filepath.Join(home, ".config", "plumsim")
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used. A missing config file yields
// the defaults.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("PLUMSIM")
	v.AutomaticEnv()

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.db_path", filepath.Join(configDir, "plumsim.db"))
	v.SetDefault("sim.workers", 0) // 0 = NumCPU
	v.SetDefault("sim.strategy_file", "./Strategy1.simulate")
	v.SetDefault("sim.match_mode", "lifo")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "plumsim.log"))
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Sim.WorkerCount < 0 {
		return fmt.Errorf("sim.workers must not be negative")
	}
	switch c.Sim.MatchMode {
	case "", "lifo", "fifo":
	default:
		return fmt.Errorf("sim.match_mode must be lifo or fifo, got %q", c.Sim.MatchMode)
	}
	return nil
}
