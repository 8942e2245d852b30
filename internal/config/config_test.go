package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Display.Width != 144 || cfg.Display.Height != 168 {
		t.Errorf("display = %dx%d, want 144x168", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Sync.WeatherInterval != 10 {
		t.Errorf("WeatherInterval = %d, want 10", cfg.Sync.WeatherInterval)
	}
	if cfg.Sync.GetQueueSize() != 64 {
		t.Errorf("GetQueueSize() = %d, want 64", cfg.Sync.GetQueueSize())
	}
	if cfg.HTTP.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr() = %q", cfg.HTTP.Addr())
	}
	if cfg.GetShutdownTimeout() != 5*time.Second {
		t.Errorf("GetShutdownTimeout() = %v", cfg.GetShutdownTimeout())
	}
	if cfg.Companion.RetryMultiplier != 2.0 {
		t.Errorf("RetryMultiplier = %v", cfg.Companion.RetryMultiplier)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("OWM_KEY", "abc123")

	cfg, err := Parse([]byte(`
log:
  level: debug
display:
  width: 180
  height: 180
  round: true
  clock_24h: true
sync:
  weather_interval: 30
  queue_size: 8
companion:
  provider: lua
  openweathermap:
    api_key: ${OWM_KEY}
    lat: ${OWM_LAT:52.52}
  max_retry_backoff: 30s
shutdown_timeout: 2s
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "level", got: cfg.Log.GetLevel(), want: "debug"},
		{name: "round", got: cfg.Display.Round, want: true},
		{name: "width", got: cfg.Display.Width, want: 180},
		{name: "clock", got: cfg.Display.Clock24h, want: true},
		{name: "weather_interval", got: cfg.Sync.WeatherInterval, want: 30},
		{name: "queue_size", got: cfg.Sync.GetQueueSize(), want: 8},
		{name: "provider", got: cfg.Companion.Provider, want: "lua"},
		{name: "api_key_from_env", got: cfg.Companion.OpenWeatherMap.APIKey, want: "abc123"},
		{name: "lat_default", got: cfg.Companion.OpenWeatherMap.Lat, want: 52.52},
		{name: "max_backoff", got: cfg.Companion.MaxRetryBackoff.Duration(), want: 30 * time.Second},
		{name: "min_backoff_default", got: cfg.Companion.MinRetryBackoff.Duration(), want: time.Second},
		{name: "shutdown", got: cfg.GetShutdownTimeout(), want: 2 * time.Second},
		{name: "sync_path_default", got: cfg.Sync.Path, want: "/sync"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestParse_BadDuration(t *testing.T) {
	if _, err := Parse([]byte("shutdown_timeout: soon\n")); err == nil {
		t.Error("Parse() accepted an invalid duration")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  path: /tmp/face.sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/face.sqlite" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestExpandEnvString(t *testing.T) {
	t.Setenv("FACE_HOST", "10.0.0.2")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "set", in: "${FACE_HOST}", want: "10.0.0.2"},
		{name: "default", in: "${FACE_UNSET:localhost}", want: "localhost"},
		{name: "plain", in: "localhost", want: "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnvString(tt.in); got != tt.want {
				t.Errorf("ExpandEnvString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
