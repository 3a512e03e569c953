package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// envPrefix is prepended to every environment override, e.g. TUNEBOX_DATABASE_PATH.
const envPrefix = "TUNEBOX_"

// Config represents the application configuration loaded from a TOML file.
//
// Every field can be overridden from the environment, see [ApplyEnv].
type Config struct {
	Database DatabaseConfig `toml:"database" envPrefix:"DATABASE_"`
	Server   ServerConfig   `toml:"server" envPrefix:"SERVER_"`
	Auth     AuthConfig     `toml:"auth" envPrefix:"AUTH_"`
	Storage  StorageConfig  `toml:"storage" envPrefix:"STORAGE_"`
	Search   SearchConfig   `toml:"search" envPrefix:"SEARCH_"`
	Playback PlaybackConfig `toml:"playback" envPrefix:"PLAYBACK_"`
	Logging  LoggingConfig  `toml:"logging" envPrefix:"LOGGING_"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string `toml:"host" env:"HOST"`
	Port           int    `toml:"port" env:"PORT"`
	PublicURL      string `toml:"public_url" env:"PUBLIC_URL"`
	MaxUploadBytes int64  `toml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig contains identity provider and API token settings.
type AuthConfig struct {
	ClientID      string   `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret  string   `toml:"client_secret" env:"CLIENT_SECRET"`
	AuthURL       string   `toml:"auth_url" env:"AUTH_URL"`
	TokenURL      string   `toml:"token_url" env:"TOKEN_URL"`
	UserInfoURL   string   `toml:"userinfo_url" env:"USERINFO_URL"`
	RedirectURI   string   `toml:"redirect_uri" env:"REDIRECT_URI"`
	Scopes        []string `toml:"scopes" env:"SCOPES" envSeparator:","`
	JWTSecret     string   `toml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTLHours int      `toml:"token_ttl_hours" env:"TOKEN_TTL_HOURS"`
	WebhookSecret string   `toml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

// TokenTTL returns the API token lifetime, defaulting to one day.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// StorageConfig contains local upload storage settings.
type StorageConfig struct {
	Dir     string `toml:"dir" env:"DIR"`
	BaseURL string `toml:"base_url" env:"BASE_URL"`
}

// SearchConfig contains search aggregator settings.
type SearchConfig struct {
	DebounceMS  int    `toml:"debounce_ms" env:"DEBOUNCE_MS"`
	RedisURL    string `toml:"redis_url" env:"REDIS_URL"`
	CacheTTLSec int    `toml:"cache_ttl_seconds" env:"CACHE_TTL_SECONDS"`
}

// Debounce returns the quiet period as a [time.Duration].
func (s SearchConfig) Debounce() time.Duration {
	if s.DebounceMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// CacheTTL returns the search cache TTL.
func (s SearchConfig) CacheTTL() time.Duration {
	if s.CacheTTLSec <= 0 {
		return time.Minute
	}
	return time.Duration(s.CacheTTLSec) * time.Second
}

// PlaybackConfig contains player defaults.
type PlaybackConfig struct {
	Volume float64 `toml:"volume" env:"VOLUME"`
	TickMS int     `toml:"tick_ms" env:"TICK_MS"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `toml:"level" env:"LEVEL"`
	File  string `toml:"file" env:"FILE"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides config values with TUNEBOX_* environment variables.
func ApplyEnv(config *Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes the config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
