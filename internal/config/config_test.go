package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "diabetes-risk.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "rule", cfg.Predictor.Kind)
	assert.Equal(t, 5, cfg.Predictor.TimeoutSecs)
	assert.InDelta(t, 10.0, cfg.Predictor.RatePerSec, 0.001)
	assert.InDelta(t, 0.34, cfg.Classifier.Medium, 1e-9)
	assert.InDelta(t, 0.67, cfg.Classifier.High, 1e-9)
	assert.False(t, cfg.Advice.Narrate)
	assert.Equal(t, int64(400), cfg.Advice.MaxTokens)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.SessionTTLMinutes)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate("serve"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: memory
predictor:
  kind: logistic
  model_path: model.yaml
classifier:
  medium: 0.3
  high: 0.6
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "logistic", cfg.Predictor.Kind)
	assert.Equal(t, "model.yaml", cfg.Predictor.ModelPath)
	assert.InDelta(t, 0.3, cfg.Classifier.Medium, 1e-9)
	assert.InDelta(t, 0.6, cfg.Classifier.High, 1e-9)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Server.SessionTTLMinutes)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: memory
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DIABRISK_STORE_DRIVER", "postgres")
	t.Setenv("DIABRISK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DIABRISK_SERVER_PORT", "3000")
	t.Setenv("DIABRISK_PREDICTOR_KIND", "http")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "http", cfg.Predictor.Kind)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "memory"
	cfg.Predictor.Kind = "rule"
	cfg.Classifier.Medium = 0.34
	cfg.Classifier.High = 0.67
	cfg.Server.Port = 8080
	cfg.Server.SessionTTLMinutes = 30
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("assess"))
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_StoreDrivers(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"
	err := cfg.Validate("assess")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "x.db"
	assert.NoError(t, cfg.Validate("assess"))

	cfg.Store.Driver = "redis"
	err = cfg.Validate("assess")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.redis.addr")

	cfg.Store.Driver = "mongo"
	err = cfg.Validate("assess")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mongo"`)
}

func TestValidate_PredictorKinds(t *testing.T) {
	cfg := validDefaults()
	cfg.Predictor.Kind = "logistic"
	assert.ErrorContains(t, cfg.Validate("assess"), "predictor.model_path")

	cfg.Predictor.Kind = "http"
	assert.ErrorContains(t, cfg.Validate("assess"), "predictor.endpoint")

	cfg.Predictor.Kind = "oracle"
	assert.ErrorContains(t, cfg.Validate("assess"), `predictor.kind "oracle"`)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Classifier.Medium = 0.8
	cfg.Advice.Narrate = true
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier thresholds")
	assert.Contains(t, err.Error(), "advice.anthropic_key")
	assert.Contains(t, err.Error(), "server.port")

	// Port is only checked for serve.
	cfg = validDefaults()
	cfg.Server.Port = 0
	assert.NoError(t, cfg.Validate("assess"))
}
