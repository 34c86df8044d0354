package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port          int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	LogLevel      string        `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	AccessExpiry  time.Duration `env:"TEST_CFG_ACCESS_EXPIRY" envDefault:"72h"`
	RefreshExpiry time.Duration `env:"TEST_CFG_REFRESH_EXPIRY" envDefault:"720h"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 72*time.Hour, cfg.AccessExpiry)
	assert.Equal(t, 720*time.Hour, cfg.RefreshExpiry)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_ACCESS_EXPIRY", "15m")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessExpiry)
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_SECRET,required,notEmpty"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("TEST_CFG_ACCESS_EXPIRY", "three days")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_SECRET=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEST_CFG_SECRET") })

	var cfg requiredConfig
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, "from-dotenv", cfg.Secret)
}

func TestLoad_DotenvDoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_SECRET=from-dotenv\n"), 0o600))
	t.Setenv("TEST_CFG_SECRET", "from-process")

	var cfg requiredConfig
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, "from-process", cfg.Secret)
}

func TestLoad_MissingDotenvIsSkipped(t *testing.T) {
	t.Setenv("TEST_CFG_SECRET", "present")

	var cfg requiredConfig
	require.NoError(t, Load(&cfg, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "present", cfg.Secret)
}
