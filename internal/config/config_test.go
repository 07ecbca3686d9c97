package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9000"
db_uri: "sqlite://data/portal.db"
plugins_path: "./plugins/"
data_path: "./data/"
secret_key: "`+testSecret+`"
plugin_skip_list: [" core_extras ", ""]
settings_cache:
  type: memory
  ttl: 30s
  flush_interval: 5m
auth:
  oidc:
    enabled: true
    issuer: "https://id.example.com/"
    client_id: portal
    redirect_url: "http://localhost:8000/auth/oidc/callback"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "sqlite://data/portal.db", cfg.DBURI)
	assert.Equal(t, "plugins", cfg.PluginsPath)
	assert.Equal(t, "data", cfg.DataPath)
	assert.Equal(t, []string{"core_extras"}, cfg.PluginSkipList)
	assert.Equal(t, 30*time.Second, cfg.SettingsCache.TTL)
	assert.Equal(t, 5*time.Minute, cfg.SettingsCache.FlushInterval)
	assert.True(t, cfg.OIDCEnabled())
	assert.Equal(t, "https://id.example.com", cfg.Auth.OIDC.Issuer)
	assert.Equal(t, 604800, cfg.SessionMaxAge)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize())
	assert.Equal(t, filepath.Join("data", "plugins", "core"), cfg.PluginDataPath("core"))
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WEB_PORTAL_DB_URI", "sqlite://portal.db")
	t.Setenv("WEB_PORTAL_SECRET_KEY", testSecret)
	t.Setenv("WEB_PORTAL_LISTEN", "0.0.0.0:1234")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://portal.db", cfg.DBURI)
	assert.Equal(t, "0.0.0.0:1234", cfg.Listen)
	assert.Equal(t, CacheTypeMemory, cfg.SettingsCache.Type)
	assert.False(t, cfg.OIDCEnabled())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing db uri",
			content: `secret_key: "` + testSecret + `"`,
			wantErr: "db_uri is required",
		},
		{
			name:    "missing secret key",
			content: `db_uri: "sqlite://x.db"`,
			wantErr: "secret_key is required",
		},
		{
			name: "short secret key",
			content: `db_uri: "sqlite://x.db"
secret_key: "short"`,
			wantErr: "at least 32 bytes",
		},
		{
			name: "redis without url",
			content: `db_uri: "sqlite://x.db"
secret_key: "` + testSecret + `"
settings_cache:
  type: redis`,
			wantErr: "redis_url is required",
		},
		{
			name: "unknown cache type",
			content: `db_uri: "sqlite://x.db"
secret_key: "` + testSecret + `"
settings_cache:
  type: memcached`,
			wantErr: "unknown settings_cache.type",
		},
		{
			name: "oidc without issuer",
			content: `db_uri: "sqlite://x.db"
secret_key: "` + testSecret + `"
auth:
  oidc:
    enabled: true`,
			wantErr: "auth.oidc requires",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "listen: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
