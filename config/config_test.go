package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, string(core.ChainEthereum), cfg.Chain)
	assert.True(t, cfg.NonceEnabled)
	assert.Empty(t, cfg.RedisURL)
	assert.Zero(t, cfg.SessionTTL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GARUDA_DOMAIN", "example.com")
	t.Setenv("GARUDA_URI", "https://example.com/login")
	t.Setenv("GARUDA_SALT", "env-salt")
	t.Setenv("GARUDA_LISTEN_ADDR", ":8080")
	t.Setenv("GARUDA_CHAIN", "solana")
	t.Setenv("GARUDA_SESSION_TTL", "10m")
	t.Setenv("GARUDA_DISABLE_ADDRESS_MAPPING", "true")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "example.com", cfg.Domain)
	assert.Equal(t, "https://example.com/login", cfg.URI)
	assert.Equal(t, "env-salt", cfg.Salt)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, string(core.ChainSolana), cfg.Chain)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.DisableAddressMapping)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, core.ChainSolana, settings.Chain)
	assert.Equal(t, 10*time.Minute, settings.SessionTTL)
	assert.Equal(t, core.DefaultSignInTTL, settings.SignInTTL)
	assert.True(t, settings.DisableAddressMapping)
	assert.True(t, settings.NonceEnabled)
}

func TestLoad_File(t *testing.T) {
	raw := []byte(`
listen_addr: ":7000"
domain: example.com
uri: https://example.com
salt: file-salt
chain: ethereum
chain_id: "11155111"
statement: Sign in to Example
sign_in_ttl: 2m
uri_in_seed: true
nonce_enabled: false
targets:
  - dGFyZ2V0LWE=
`)
	path := filepath.Join(t.TempDir(), "garuda.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "file-salt", cfg.Salt)
	assert.Equal(t, "11155111", cfg.ChainID)
	assert.Equal(t, 2*time.Minute, cfg.SignInTTL)
	assert.True(t, cfg.URIInSeed)
	assert.False(t, cfg.NonceEnabled)
	assert.Equal(t, []string{"dGFyZ2V0LWE="}, cfg.Targets)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "Sign in to Example", settings.Statement)
	assert.Equal(t, "11155111", settings.ChainID)
	assert.Equal(t, 2*time.Minute, settings.SignInTTL)
	assert.True(t, settings.IncludeURIInSeed)
	assert.False(t, settings.NonceEnabled)
	assert.Equal(t, [][]byte{[]byte("target-a")}, settings.Targets)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garuda.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":7000\"\n"), 0o600))
	t.Setenv("GARUDA_LISTEN_ADDR", ":6000")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.ListenAddr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestConfig_Settings_Invalid(t *testing.T) {
	t.Run("incomplete configuration", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		// Domain, URI and salt are still empty.
		_, err = cfg.Settings()
		assert.Error(t, err)
	})

	t.Run("target not base64", func(t *testing.T) {
		cfg := Config{
			Chain:   string(core.ChainEthereum),
			Domain:  "example.com",
			URI:     "https://example.com",
			Salt:    "salt",
			Targets: []string{"not base64!!"},
		}

		_, err := cfg.Settings()
		assert.Error(t, err)
	})

	t.Run("unsupported chain", func(t *testing.T) {
		cfg := Config{
			Chain:  "bitcoin",
			Domain: "example.com",
			URI:    "https://example.com",
			Salt:   "salt",
		}

		_, err := cfg.Settings()
		assert.Error(t, err)
	})
}

func TestConfig_Settings_TargetDecoding(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	cfg := Config{
		Chain:   string(core.ChainEthereum),
		Domain:  "example.com",
		URI:     "https://example.com",
		Salt:    "salt",
		Targets: []string{encoded},
	}

	settings, err := cfg.Settings()

	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x01, 0x02, 0x03}}, settings.Targets)
}
