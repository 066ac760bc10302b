package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Retention.Days)
	assert.Equal(t, 24*time.Hour, cfg.Retention.SweepInterval)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RACUNKO_SERVER_PORT", "9090")
	t.Setenv("RACUNKO_LOG_LEVEL", "debug")
	t.Setenv("RACUNKO_RETENTION_DAYS", "14")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 14, cfg.Retention.Days)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 3000
retention:
  days: 3
  sweep_interval: 1h
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Retention.Days)
	assert.Equal(t, time.Hour, cfg.Retention.SweepInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "zero port rejected",
			mutate:  func(cfg *Config) { cfg.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "negative retention rejected",
			mutate:  func(cfg *Config) { cfg.Retention.Days = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
