package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/qrlens/internal/reputation"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(configEnvVar, "")
	t.Setenv(APIKeyEnvVar, "")
	t.Setenv("QRLENS_REPUTATION_API_KEY", "")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qrlens.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestValidateLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "INFO"} {
		assert.NoError(t, ValidateLogLevel(lvl), lvl)
	}
	assert.Error(t, ValidateLogLevel("trace"))
	assert.Error(t, ValidateLogLevel(""))
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Resolver.MaxHops)
	assert.Equal(t, 5*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, reputation.DefaultEndpoint, cfg.Reputation.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Reputation.Timeout)
	assert.Empty(t, cfg.Reputation.APIKey)
	assert.Equal(t, "models/model.yaml", cfg.Model.Path)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[logging]
level = "debug"

[resolver]
max_hops = 8
timeout = "2s"
user_agent = "test-agent"

[reputation]
api_key = "from-file"

[runner]
workers = 16
rate_limit = 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Resolver.MaxHops)
	assert.Equal(t, 2*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, "test-agent", cfg.Resolver.UserAgent)
	assert.Equal(t, "from-file", cfg.Reputation.APIKey)
	assert.Equal(t, 16, cfg.Runner.Workers)
	assert.Equal(t, 5, cfg.Runner.RateLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[resolver]\nmax_hops = 3\n")
	t.Setenv("QRLENS_RESOLVER_MAX_HOPS", "9")
	t.Setenv(APIKeyEnvVar, "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Resolver.MaxHops)
	assert.Equal(t, "env-key", cfg.Reputation.APIKey)
}

func TestLoadConfigEnvVar(t *testing.T) {
	isolate(t)
	t.Setenv(configEnvVar, writeConfig(t, "[server]\nlisten = \"127.0.0.1:9000\"\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	// godotenv never overrides a variable that is already set, even to ""
	require.NoError(t, os.Unsetenv(APIKeyEnvVar))
	require.NoError(t, os.WriteFile(".env", []byte(APIKeyEnvVar+"=dotenv-key\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Reputation.APIKey)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "[logging]\nlevel = \"verbose\"\n"))
	assert.ErrorContains(t, err, "invalid log level")

	_, err = Load(writeConfig(t, "[resolver]\nmax_hops = 0\n"))
	assert.ErrorContains(t, err, "max_hops")
}

func TestValidate(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Server.Listen = "nohostport"
	assert.ErrorContains(t, Validate(&bad), "server.listen")

	bad = *cfg
	bad.Runner.Workers = 0
	assert.ErrorContains(t, Validate(&bad), "runner.workers")

	bad = *cfg
	bad.Reputation.Timeout = 0
	assert.ErrorContains(t, Validate(&bad), "reputation.timeout")
}
