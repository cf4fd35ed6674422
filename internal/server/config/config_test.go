package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"server"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetArgs(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, int64(4), cfg.KDFConcurrencyLimit)
	assert.Empty(t, cfg.MasterKeyHex, "master key must have no default")
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	resetArgs(t, "-a", ":9999", "-t", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	resetArgs(t)
	t.Setenv("MASTER_KEY", "aa")
	t.Setenv("DATABASE_DSN", "postgres://env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "aa", cfg.MasterKeyHex)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
}

func TestLoadConfig_JsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	content, err := json.Marshal(map[string]any{
		"endpoint_addr_http":              ":7070",
		"master_key":                      "bb",
		"access_token_validity_duration":  "3m",
		"refresh_token_validity_duration": "48h",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	resetArgs(t, "-c", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.EndpointAddrHTTP)
	assert.Equal(t, "bb", cfg.MasterKeyHex)
	assert.Equal(t, 3*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
}

func TestLoadConfig_BadJsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	resetArgs(t, "-c", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}
