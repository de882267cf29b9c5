package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "no", cfg.Security.AllowVulnerableOpenSSL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Audit.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "tlsguard.toml", `
[security]
allow_vulnerable_openssl = "CVE-2014-0160"

[library]
crypto_path = "/opt/ssl/lib/libcrypto.so.1.0.0"

[log]
level = "debug"
json = true

[audit]
path = "/var/lib/tlsguard/audit.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "CVE-2014-0160", cfg.Security.AllowVulnerableOpenSSL)
	assert.Equal(t, "/opt/ssl/lib/libcrypto.so.1.0.0", cfg.Library.CryptoPath)
	assert.Empty(t, cfg.Library.SSLPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "/var/lib/tlsguard/audit.db", cfg.Audit.Path)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "tlsguard.yaml", `
security:
  allow_vulnerable_openssl: "yes"
metrics:
  addr: ":9100"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yes", cfg.Security.AllowVulnerableOpenSSL)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "tlsguard.ini", "x=1"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load(writeFile(t, "bad.toml", "[security\n"))
	assert.ErrorContains(t, err, "decode")

	_, err = Load(writeFile(t, "level.yml", "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log.level")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
