// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Log     LogConfig     `mapstructure:"log"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Tracker TrackerConfig `mapstructure:"tracker"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// CatalogConfig selects the external catalog provider and how to reach it.
type CatalogConfig struct {
	Provider       string `mapstructure:"provider"`
	Region         string `mapstructure:"region"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	LookupBaseURL  string `mapstructure:"lookup_base_url"`
	// APIBaseURL is a format string receiving the region domain suffix,
	// e.g. "https://api.audible%s".
	APIBaseURL string `mapstructure:"api_base_url"`
}

// Timeout returns the per-request timeout.
func (c CatalogConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TrackerConfig controls the daily release sweep.
type TrackerConfig struct {
	CheckTime       string `mapstructure:"check_time"`
	BatchSize       int    `mapstructure:"batch_size"`
	ItemDelayMS     int    `mapstructure:"item_delay_ms"`
	StaleAfterHours int    `mapstructure:"stale_after_hours"`
}

func (t TrackerConfig) ItemDelay() time.Duration {
	if t.ItemDelayMS < 0 {
		return 0
	}
	return time.Duration(t.ItemDelayMS) * time.Millisecond
}

func (t TrackerConfig) StaleAfter() time.Duration {
	if t.StaleAfterHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(t.StaleAfterHours) * time.Hour
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path
// searches the current directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // name of config file (without extension)
		v.SetConfigType("yml")    // or "yaml"
		v.AddConfigPath(".")      // looking for config in the current directory
	}

	// --- Environment Variable Overrides ---
	// e.g., SERIESWATCH_DATABASE_PATH will override the `database.path` key.
	v.SetEnvPrefix("SERIESWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("database.path", "./serieswatch.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("catalog.provider", "audible")
	v.SetDefault("catalog.region", "us")
	v.SetDefault("catalog.timeout_seconds", 10)
	v.SetDefault("catalog.lookup_base_url", "https://api.audnex.us")
	v.SetDefault("catalog.api_base_url", "https://api.audible%s")
	v.SetDefault("tracker.check_time", "03:00")
	v.SetDefault("tracker.batch_size", 50)
	v.SetDefault("tracker.item_delay_ms", 2000)
	v.SetDefault("tracker.stale_after_hours", 24)
}
