package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig       `yaml:"log"`
	Database        DatabaseConfig  `yaml:"database"`
	Display         DisplayConfig   `yaml:"display"`
	Icons           IconsConfig     `yaml:"icons"`
	Battery         BatteryConfig   `yaml:"battery"`
	Sync            SyncConfig      `yaml:"sync"`
	HTTP            HTTPConfig      `yaml:"http"`
	Companion       CompanionConfig `yaml:"companion"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the configured level, defaulting to info
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DisplayConfig describes the screen the face is composed for
type DisplayConfig struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Round    bool   `yaml:"round"`     // Round screens move the time and date rows down
	Clock24h bool   `yaml:"clock_24h"` // "15:04" instead of "03:04"
	Timezone string `yaml:"timezone"`
}

// IconsConfig contains weather icon resource settings
type IconsConfig struct {
	Dir       string `yaml:"dir"`        // Directory with 01d.png .. 50n.png; empty = built-in icons
	CacheSize int    `yaml:"cache_size"` // Decoded bitmaps kept around between swaps
}

// BatteryConfig contains local battery source settings
type BatteryConfig struct {
	Path         string   `yaml:"path"` // power_supply directory, empty = autodetect
	PollInterval Duration `yaml:"poll_interval"`
}

// SyncConfig contains settings for the companion sync channel and event loop
type SyncConfig struct {
	Path             string   `yaml:"path"`              // Websocket endpoint path
	QueueSize        int      `yaml:"queue_size"`        // Event loop queue size
	WeatherInterval  int      `yaml:"weather_interval"`  // Minutes between weather requests
	HistoryLimit     int      `yaml:"history_limit"`     // Entries returned by /debug/sync
	HistoryRetention Duration `yaml:"history_retention"` // Ledger entries older than this are pruned at start-up
}

// HTTPConfig contains the face HTTP server settings (sync socket, health, metrics, snapshot)
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CompanionConfig contains settings for the companion process
type CompanionConfig struct {
	FaceURL  string `yaml:"face_url"`
	Provider string `yaml:"provider"` // "openweathermap" or "lua"
	Script   string `yaml:"script"`

	OpenWeatherMap OpenWeatherMapConfig `yaml:"openweathermap"`

	// Reconnect settings
	MinRetryBackoff Duration `yaml:"min_retry_backoff"`
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"`
	RetryMultiplier float64  `yaml:"retry_multiplier"`
	MaxReconnects   int      `yaml:"max_reconnects"` // 0 = infinite

	MinFetchInterval    Duration `yaml:"min_fetch_interval"`    // Weather fetch rate limit
	BatteryPollInterval Duration `yaml:"battery_poll_interval"` // How often to check the companion battery
	BatteryPath         string   `yaml:"battery_path"`
}

// OpenWeatherMapConfig contains OpenWeatherMap settings
type OpenWeatherMapConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Lat     float64  `yaml:"lat"`
	Lon     float64  `yaml:"lon"`
	Timeout Duration `yaml:"timeout"`
}

// Addr returns host:port of the face HTTP server
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetQueueSize returns queue size with default
func (c *SyncConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 64
	}
	return c.QueueSize
}

// GetShutdownTimeout returns the shutdown timeout as time.Duration
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./watchface.sqlite"
	}

	// Display defaults: rectangular 144x168 screen
	if cfg.Display.Width == 0 {
		cfg.Display.Width = 144
	}
	if cfg.Display.Height == 0 {
		cfg.Display.Height = 168
	}
	if cfg.Display.Timezone == "" {
		cfg.Display.Timezone = "Local"
	}

	if cfg.Icons.CacheSize == 0 {
		cfg.Icons.CacheSize = 4
	}

	if cfg.Battery.PollInterval == 0 {
		cfg.Battery.PollInterval = Duration(30 * time.Second)
	}

	if cfg.Sync.Path == "" {
		cfg.Sync.Path = "/sync"
	}
	if cfg.Sync.WeatherInterval <= 0 {
		cfg.Sync.WeatherInterval = 10
	}
	if cfg.Sync.HistoryLimit <= 0 {
		cfg.Sync.HistoryLimit = 50
	}
	if cfg.Sync.HistoryRetention == 0 {
		cfg.Sync.HistoryRetention = Duration(7 * 24 * time.Hour)
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 9090
	}

	// Companion defaults
	if cfg.Companion.FaceURL == "" {
		cfg.Companion.FaceURL = "ws://127.0.0.1:9090/sync"
	}
	if cfg.Companion.Provider == "" {
		cfg.Companion.Provider = "openweathermap"
	}
	if cfg.Companion.Script == "" {
		cfg.Companion.Script = "companion.lua"
	}
	if cfg.Companion.OpenWeatherMap.BaseURL == "" {
		cfg.Companion.OpenWeatherMap.BaseURL = "http://api.openweathermap.org/data/2.5/weather"
	}
	if cfg.Companion.OpenWeatherMap.Timeout == 0 {
		cfg.Companion.OpenWeatherMap.Timeout = Duration(15 * time.Second)
	}
	if cfg.Companion.MinRetryBackoff == 0 {
		cfg.Companion.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.Companion.MaxRetryBackoff == 0 {
		cfg.Companion.MaxRetryBackoff = Duration(2 * time.Minute)
	}
	if cfg.Companion.RetryMultiplier == 0 {
		cfg.Companion.RetryMultiplier = 2.0
	}
	// MaxReconnects defaults to 0 (infinite), no need to set
	if cfg.Companion.MinFetchInterval == 0 {
		cfg.Companion.MinFetchInterval = Duration(1 * time.Minute)
	}
	if cfg.Companion.BatteryPollInterval == 0 {
		cfg.Companion.BatteryPollInterval = Duration(30 * time.Second)
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
