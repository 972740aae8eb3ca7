package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:        AppConfig{Environment: "development", DataPath: "/data"},
		Logger:     LoggerConfig{Level: "info"},
		Relational: RelationalConfig{Path: "/data/libris.db", MaxOpenConns: 8, MaxIdleConns: 4, Timeout: 3 * time.Second},
		Document:   DocumentConfig{Path: "/data/documents"},
		Reconcile:  ReconcileConfig{BatchSize: 500, RepairRate: 50, RepairBurst: 10},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		cfg := validConfig()
		cfg.Logger.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}

	cfg := validConfig()
	cfg.Logger.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pool", func(c *Config) { c.Relational.MaxOpenConns = 0 }},
		{"zero timeout", func(c *Config) { c.Relational.Timeout = 0 }},
		{"zero batch", func(c *Config) { c.Reconcile.BatchSize = 0 }},
		{"zero rate", func(c *Config) { c.Reconcile.RepairRate = 0 }},
		{"empty document path", func(c *Config) { c.Document.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ClampsIdleToOpen(t *testing.T) {
	cfg := validConfig()
	cfg.Relational.MaxOpenConns = 2
	cfg.Relational.MaxIdleConns = 10

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Relational.MaxIdleConns)
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	cfg, err := LoadConfig([]string{"-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, filepath.Join(dir, "libris.db"), cfg.Relational.Path)
	assert.Equal(t, filepath.Join(dir, "documents"), cfg.Document.Path)
	assert.Equal(t, 8, cfg.Relational.MaxOpenConns)
	assert.Equal(t, 3*time.Second, cfg.Relational.Timeout)
	assert.Equal(t, 500, cfg.Reconcile.BatchSize)
	assert.InDelta(t, 50.0, cfg.Reconcile.RepairRate, 0.0001)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoadConfig_FlagBeatsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("SCAN_BATCH_SIZE", "100")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := LoadConfig([]string{"-scan-batch-size", "25", "-env-file", filepath.Join(dir, "none")})
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Reconcile.BatchSize)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("RELATIONAL_TIMEOUT", "soon")

	_, err := LoadConfig([]string{"-env-file", "/nonexistent/.env"})
	assert.Error(t, err)
}

func TestFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("RELATIONAL_PATH", filepath.Join(dir, "custom.db"))
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := FromEnvironment()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.Relational.Path)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nLIBRIS_TEST_A=\"quoted\"\n\nLIBRIS_TEST_B=plain\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("LIBRIS_TEST_B", "from-env")
	require.NoError(t, loadEnvFile(path))
	t.Cleanup(func() { _ = os.Unsetenv("LIBRIS_TEST_A") })

	assert.Equal(t, "quoted", os.Getenv("LIBRIS_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("LIBRIS_TEST_B"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOEQUALS\n"), 0o600))

	assert.Error(t, loadEnvFile(path))
}

func TestExpandPath(t *testing.T) {
	got, err := expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err = expandPath("~/libris", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "libris"), got)
}
