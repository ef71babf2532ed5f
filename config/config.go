package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Accounts AccountsConfig `json:"accounts" yaml:"accounts" mapstructure:"accounts"`
	Remote   RemoteConfig   `json:"remote" yaml:"remote" mapstructure:"remote"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify" mapstructure:"notify"`
	Data     DataConfig     `json:"data" yaml:"data" mapstructure:"data"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP API parameters
type ServerConfig struct {
	Port    string `json:"port" yaml:"port" mapstructure:"port"`
	GinMode string `json:"gin_mode,omitempty" yaml:"gin_mode,omitempty" mapstructure:"gin_mode"`
	// Notifications per second accepted by /api/send-notification.
	NotifyRate  float64 `json:"notify_rate" yaml:"notify_rate" mapstructure:"notify_rate"`
	NotifyBurst int     `json:"notify_burst" yaml:"notify_burst" mapstructure:"notify_burst"`
}

// AccountsConfig locates the account list and its seed id
type AccountsConfig struct {
	ConfigPath string `json:"config_path" yaml:"config_path" mapstructure:"config_path"`
	FallbackID string `json:"fallback_id,omitempty" yaml:"fallback_id,omitempty" mapstructure:"fallback_id"`
}

// RemoteConfig points at the account-data service
type RemoteConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Timeout string `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // e.g. "30s"
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Type      string `json:"type" yaml:"type" mapstructure:"type"` // memory|sqlite|postgres|mysql
	DSN       string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty" mapstructure:"log_level"`
}

// NotifyConfig configures push delivery
type NotifyConfig struct {
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
	Timeout    string `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// DataConfig holds the local output directory
type DataConfig struct {
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LoggingConfig holds the log level
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// envKeys binds environment variables onto config keys.
var envKeys = map[string]string{
	"server.port":          "PORT",
	"server.gin_mode":      "GIN_MODE",
	"server.notify_rate":   "NOTIFY_RATE",
	"server.notify_burst":  "NOTIFY_BURST",
	"accounts.config_path": "ACCOUNTS_CONFIG",
	"accounts.fallback_id": "CTRADER_ACCOUNT_ID",
	"remote.base_url":      "ACCOUNT_DATA_API_URL",
	"remote.timeout":       "ACCOUNT_DATA_TIMEOUT",
	"store.type":           "STORE_TYPE",
	"store.dsn":            "STORE_DSN",
	"store.redis_addr":     "REDIS_ADDR",
	"notify.webhook_url":   "PUSH_WEBHOOK_URL",
	"data.dir":             "DATA_DIR",
	"logging.level":        "LOG_LEVEL",
}

// Load builds the configuration: defaults, then the optional file at path,
// then .env and process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	_ = godotenv.Load()
	if err := cfg.ApplyEnv(viper.New()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv loads c into v as its base layer, binds the environment on top
// and decodes the merged settings back into c. Empty variables are ignored.
func (c *Config) ApplyEnv(v *viper.Viper) error {
	base, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return fmt.Errorf("load config layer: %w", err)
	}

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}

	merged := *c
	if err := v.Unmarshal(&merged); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	*c = merged
	return nil
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Fields missing from the file keep their defaults.
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
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
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %q", c.Server.Port)
	}
	if c.Server.NotifyRate <= 0 {
		return fmt.Errorf("server.notify_rate must be positive")
	}
	if c.Server.NotifyBurst <= 0 {
		return fmt.Errorf("server.notify_burst must be positive")
	}
	if c.Accounts.ConfigPath == "" {
		return fmt.Errorf("accounts.config_path is required")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if u, err := url.Parse(c.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.base_url must be an absolute URL, got %q", c.Remote.BaseURL)
	}
	if _, err := c.RemoteTimeout(); err != nil {
		return fmt.Errorf("remote.timeout: %w", err)
	}
	if _, err := c.NotifyTimeout(); err != nil {
		return fmt.Errorf("notify.timeout: %w", err)
	}
	switch c.Store.Type {
	case "memory":
	case "sqlite", "postgres", "postgresql", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn required for %s store", c.Store.Type)
		}
	default:
		return fmt.Errorf("store.type must be one of memory, sqlite, postgres, mysql")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	return nil
}

// RemoteTimeout parses the account-data request timeout.
func (c *Config) RemoteTimeout() (time.Duration, error) {
	return parsePositiveDuration(c.Remote.Timeout)
}

// NotifyTimeout parses the push delivery timeout.
func (c *Config) NotifyTimeout() (time.Duration, error) {
	return parsePositiveDuration(c.Notify.Timeout)
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "5000",
			GinMode:     "release",
			NotifyRate:  5,
			NotifyBurst: 10,
		},
		Accounts: AccountsConfig{
			ConfigPath: "accounts_config.json",
		},
		Remote: RemoteConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "30s",
		},
		Store: StoreConfig{
			Type:     "sqlite",
			DSN:      "data/tradedash.db",
			LogLevel: "silent",
		},
		Notify: NotifyConfig{
			Timeout: "10s",
		},
		Data: DataConfig{
			Dir: "data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
