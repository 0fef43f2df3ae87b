package guard

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, 100000, cfg.Health.TokenLimit)
	assert.InDelta(t, 0.3, cfg.Drift.DetectionThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Compaction.MaxPasses)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default is valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "sqlite with path is valid",
			mutate: func(c *Config) { c.Storage = StorageConfig{Backend: BackendSQLite, Path: "x.db"} },
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "postgres" },
			wantErr: "storage",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Storage.Backend = BackendSQLite },
			wantErr: "storage",
		},
		{
			name:    "bad token limit",
			mutate:  func(c *Config) { c.Health.TokenLimit = -1 },
			wantErr: "health",
		},
		{
			name:    "bad drift window",
			mutate:  func(c *Config) { c.Drift.TopicWindow = -5 },
			wantErr: "drift",
		},
		{
			name:    "bad compaction threshold",
			mutate:  func(c *Config) { c.Compaction.SummarizeThreshold = 2 },
			wantErr: "compaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateSentinels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "postgres"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidBackend)

	cfg = DefaultConfig()
	cfg.Storage.Backend = BackendSQLite
	assert.ErrorIs(t, cfg.Validate(), ErrMissingPath)
}

func TestLoadConfigBytes(t *testing.T) {
	doc := []byte(`
logging:
  level: debug
  format: console
health:
  token_limit: 50000
drift:
  detection_threshold: 0.4
compaction:
  max_passes: 2
storage:
  backend: sqlite
  path: /tmp/rotguard.db
`)

	cfg, err := LoadConfigBytes(doc)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 50000, cfg.Health.TokenLimit)
	assert.InDelta(t, 0.4, cfg.Drift.DetectionThreshold, 1e-9)
	assert.Equal(t, 2, cfg.Compaction.MaxPasses)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/rotguard.db", cfg.Storage.Path)

	// Unset fields fall back to the reference tuning.
	assert.InDelta(t, 70, cfg.Health.WarningUtilization, 1e-9)
	assert.Equal(t, 10, cfg.Drift.RecentAssistantWindow)
	assert.InDelta(t, 0.5, cfg.Compaction.SummarizeThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Compaction.Scoring.SweetSpotMin)
}

func TestLoadConfigBytes_EnvOverridesFile(t *testing.T) {
	t.Setenv("ROTGUARD_HEALTH_TOKEN_LIMIT", "42000")
	t.Setenv("ROTGUARD_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigBytes([]byte("health:\n  token_limit: 10000\n"))
	require.NoError(t, err)

	assert.Equal(t, 42000, cfg.Health.TokenLimit)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigBytes_InvalidYAML(t *testing.T) {
	_, err := LoadConfigBytes([]byte("health: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadConfigBytes_InvalidResult(t *testing.T) {
	_, err := LoadConfigBytes([]byte("health:\n  token_limit: -3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("health:\n  token_limit: 64000\nlogging:\n  level: error\n")
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 64000, cfg.Health.TokenLimit)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config file")
}

func TestLoadConfig_RejectsWeakPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}
