package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

contact:
  hubspot_api_key: "hs-key"
  resend_api_key: "re-key"
  notify_from: "Studio <hello@example.com>"
  notify_to: "owner@example.com"
  site_name: "example.com"
  site_url: "https://example.com"

events:
  allowed_referers:
    - "example.com"
    - "localhost"
  dedup_seconds: 60

redis:
  enabled: true
  addr: "redis:6379"

database:
  enabled: true
  url: "postgres://localhost/engage"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "hs-key", cfg.Contact.HubSpotAPIKey)
	assert.Equal(t, "re-key", cfg.Contact.ResendAPIKey)
	assert.Equal(t, "owner@example.com", cfg.Contact.NotifyTo)
	assert.Equal(t, "example.com", cfg.Contact.SiteName)

	assert.Equal(t, []string{"example.com", "localhost"}, cfg.Events.AllowedReferers)
	assert.Equal(t, 60*time.Second, cfg.Events.DedupWindow())

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Database.Enabled)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
contact:
  site_name: "example.com"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "resend", cfg.Contact.NotifyProvider)
	assert.Equal(t, 30*time.Second, cfg.Events.DedupWindow())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "us-west-2", cfg.SES.Region)
	assert.True(t, cfg.Logging.RedactEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `
contact:
  hubspot_api_key: "file-key"
`)

	os.Setenv("HUBSPOT_API_KEY", "env-key")
	os.Setenv("RESEND_API_KEY", "env-resend")
	os.Setenv("DATABASE_URL", "postgres://env/engage")
	defer func() {
		os.Unsetenv("HUBSPOT_API_KEY")
		os.Unsetenv("RESEND_API_KEY")
		os.Unsetenv("DATABASE_URL")
	}()

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	// Environment variables override file values.
	assert.Equal(t, "env-key", cfg.Contact.HubSpotAPIKey)
	assert.Equal(t, "env-resend", cfg.Contact.ResendAPIKey)
	assert.Equal(t, "postgres://env/engage", cfg.Database.URL)
	// DATABASE_URL implies persistence is on.
	assert.True(t, cfg.Database.Enabled)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestRedactDisabled(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  redact_pii: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Logging.RedactEnabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvWithoutFile(t *testing.T) {
	// Env-only deployments have no YAML file; defaults apply.
	cfg, err := LoadFromEnv("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "resend", cfg.Contact.NotifyProvider)
	assert.Equal(t, 30, cfg.Events.DedupSeconds)
}
