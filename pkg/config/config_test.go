package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every env var that Load() reads.
var allConfigKeys = []string{
	"APP_ENV",
	"APP_HTTP_ADDR",
	"APL",
	"APL_FILE_PATH",
	"REDIS_URL",
	"DATABASE_URL",
	"ALLOWED_DOMAIN_PATTERN",
	"SECRET_KEY",
	"JWT_CLOCK_SKEW_SEC",
	"BASE_PERMISSIONS",
	"JWKS_CACHE_TTL_SEC",
	"PERMISSION_POLICY_REGO",
	"ROUTE_PERMISSIONS_FILE",
}

// isolateConfigEnv unsets all config env vars so tests don't inherit values
// from the host environment. t.Cleanup restores originals afterwards.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		key := key
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, "file", cfg.APLBackend)
	assert.Equal(t, ".saleor-app-auth.json", cfg.APLFilePath)
	assert.Equal(t, []string{"MANAGE_APPS"}, cfg.BasePermissions)
	assert.Equal(t, 60*time.Second, cfg.ClockSkew)
}

func TestLoad_Overrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APL", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BASE_PERMISSIONS", "MANAGE_APPS, MANAGE_SETTINGS")

	cfg := Load()

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "redis", cfg.APLBackend)
	assert.Equal(t, []string{"MANAGE_APPS", "MANAGE_SETTINGS"}, cfg.BasePermissions)
}

// A backend selector pointing at an unconfigured store must not produce a
// half-wired service; it degrades to the file backend.
func TestLoad_BackendFallback(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("APL", "postgres")

	cfg := Load()

	assert.Equal(t, "file", cfg.APLBackend)
}

func TestLoadRoutePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
routes:
  /api/configuration: [MANAGE_SETTINGS]
  /api/channels: [MANAGE_CHANNELS, MANAGE_SETTINGS]
`), 0o600))

	rp, err := LoadRoutePermissions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"MANAGE_SETTINGS"}, rp.For("/api/configuration"))
	assert.Equal(t, []string{"MANAGE_CHANNELS", "MANAGE_SETTINGS"}, rp.For("/api/channels"))
	assert.Nil(t, rp.For("/api/unknown"))
}

func TestLoadRoutePermissions_EmptyPath(t *testing.T) {
	rp, err := LoadRoutePermissions("")
	require.NoError(t, err)
	assert.Empty(t, rp)
}

func TestLoadRoutePermissions_MissingFile(t *testing.T) {
	_, err := LoadRoutePermissions(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
