// Package config resolves factdb settings from defaults, an optional
// factdb.yaml, FACTDB_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved configuration.
type Config struct {
	Database string        `mapstructure:"database"`
	Model    string        `mapstructure:"model"`
	Log      LogConfig     `mapstructure:"log"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
}

// LogConfig selects the process logger.
type LogConfig struct {
	Format string `mapstructure:"format"` // "text" | "pretty" | "json"
	Debug  bool   `mapstructure:"debug"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen
// address disables it.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// LogFormats are the accepted values of log.format.
var LogFormats = []string{"text", "pretty", "json"}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Database: "factdb.db",
		Log:      LogConfig{Format: "pretty"},
	}
}

// InitViper creates a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FACTDB_DATABASE, FACTDB_LOG_FORMAT, etc.)
//  3. factdb.yaml in configDir, or the working directory when empty
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	v.SetConfigName("factdb")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("FACTDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load resolves v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		return nil, fmt.Errorf("invalid log.format %q: must be one of %v", c.Log.Format, LogFormats)
	}
	return &c, nil
}

// setViperDefaults registers NewDefaultConfig using dotted keys.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("database", d.Database)
	v.SetDefault("model", d.Model)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
}
