package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Remote.BaseURL)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.NoError(t, cfg.Validate())

	d, err := cfg.RemoteTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = "http" },
			wantErr: true,
			errMsg:  "server.port",
		},
		{
			name:    "missing accounts path",
			mutate:  func(c *Config) { c.Accounts.ConfigPath = "" },
			wantErr: true,
			errMsg:  "accounts.config_path is required",
		},
		{
			name:    "relative remote url",
			mutate:  func(c *Config) { c.Remote.BaseURL = "localhost:8000" },
			wantErr: true,
			errMsg:  "remote.base_url must be an absolute URL",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Remote.Timeout = "0s" },
			wantErr: true,
			errMsg:  "remote.timeout",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store.Type = "firestore" },
			wantErr: true,
			errMsg:  "store.type must be one of",
		},
		{
			name:    "sqlite without dsn",
			mutate:  func(c *Config) { c.Store.DSN = "" },
			wantErr: true,
			errMsg:  "store.dsn required",
		},
		{
			name: "memory without dsn",
			mutate: func(c *Config) {
				c.Store.Type = "memory"
				c.Store.DSN = ""
			},
		},
		{
			name:    "non-positive notify rate",
			mutate:  func(c *Config) { c.Server.NotifyRate = 0 },
			wantErr: true,
			errMsg:  "server.notify_rate must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.Port = "8080"
			cfg.Store.Type = "memory"
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Server.Port, loaded.Server.Port)
			assert.Equal(t, cfg.Store.Type, loaded.Store.Type)
			assert.Equal(t, cfg.Remote.BaseURL, loaded.Remote.BaseURL)
		})
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "30s", cfg.Remote.Timeout)
	assert.Equal(t, "accounts_config.json", cfg.Accounts.ConfigPath)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "7001")
	t.Setenv("ACCOUNT_DATA_API_URL", "http://feed.internal:9000")
	t.Setenv("CTRADER_ACCOUNT_ID", "45073191")
	t.Setenv("STORE_TYPE", "memory")
	t.Setenv("LOG_LEVEL", "")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(viper.New()))

	assert.Equal(t, "7001", cfg.Server.Port)
	assert.Equal(t, "http://feed.internal:9000", cfg.Remote.BaseURL)
	assert.Equal(t, "45073191", cfg.Accounts.FallbackID)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.yaml")
	cfg := Default()
	cfg.Server.Port = "8080"
	require.NoError(t, cfg.SaveToFile(path))

	t.Setenv("PORT", "8181")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8181", loaded.Server.Port)
}

func TestApplyEnv_DecodesTypedValues(t *testing.T) {
	t.Setenv("NOTIFY_RATE", "2.5")
	t.Setenv("NOTIFY_BURST", "4")

	cfg := Default()
	cfg.Store.Type = "memory"
	cfg.Store.DSN = ""
	require.NoError(t, cfg.ApplyEnv(viper.New()))

	assert.Equal(t, 2.5, cfg.Server.NotifyRate)
	assert.Equal(t, 4, cfg.Server.NotifyBurst)
	assert.Equal(t, "memory", cfg.Store.Type, "file layer kept")
	assert.Empty(t, cfg.Store.DSN, "omitted keys keep the file value")
}

func TestApplyEnv_ExposesMergedSettings(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6379")

	v := viper.New()
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(v))

	assert.Equal(t, "cache:6379", v.GetString("store.redis_addr"))
	assert.Equal(t, "5000", v.GetString("server.port"))
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
}
