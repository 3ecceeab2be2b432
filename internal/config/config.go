// Package config loads pitchdeck settings with Viper from defaults, an
// optional pitchdeck.yaml, PITCHDECK_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"pitchdeck/internal/logger"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all runtime settings.
type Config struct {
	// SlidesDir loads the deck from a directory instead of the built-in one.
	SlidesDir string `mapstructure:"slides_dir"`
	// HTTPAddr is the browser listen address.
	HTTPAddr string `mapstructure:"http_addr"`
	LogLevel string `mapstructure:"log_level"`
	// LogFile receives logs in terminal mode. Empty discards them.
	LogFile string `mapstructure:"log_file"`
	// Style is a glamour style name; "auto" picks dark or light.
	Style    string `mapstructure:"style"`
	WordWrap int    `mapstructure:"word_wrap"`
	// WatchExe shuts the server down when its executable is replaced.
	WatchExe bool `mapstructure:"watch_exe"`
}

// Defaults are applied before any file, environment or flag value.
var Defaults = map[string]any{
	"slides_dir": "",
	"http_addr":  "localhost:8080",
	"log_level":  "info",
	"log_file":   "",
	"style":      "auto",
	"word_wrap":  80,
	"watch_exe":  false,
}

// Load reads configuration. configFile, when set, must exist; otherwise
// pitchdeck.yaml is looked up in the working directory and
// $HOME/.config/pitchdeck and is optional. bind, when non-nil, attaches
// command line flags to v.
func Load(configFile string, bind func(v *viper.Viper) error) (*Config, error) {
	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("pitchdeck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/pitchdeck")
		if err := v.ReadInConfig(); err != nil {
			// config file is optional; ignore "not found" errors
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("PITCHDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if bind != nil {
		if err := bind(v); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.WordWrap <= 0 {
		return fmt.Errorf("%w: word_wrap must be positive, got %d", ErrInvalidConfig, c.WordWrap)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%w: http_addr is empty", ErrInvalidConfig)
	}
	return nil
}
