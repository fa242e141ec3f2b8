package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsBuilder_Defaults(t *testing.T) {
	s, err := NewSettings(ChainEthereum, "example.com", "https://example.com", "salt").Build()

	require.NoError(t, err)
	assert.Equal(t, DefaultStatement, s.Statement)
	assert.Equal(t, "1", s.ChainID)
	assert.Equal(t, DefaultSignInTTL, s.SignInTTL)
	assert.Equal(t, DefaultSessionTTL, s.SessionTTL)
	assert.Equal(t, DefaultDelegationTTLMax, s.DelegationTTLMax)
	assert.False(t, s.NonceEnabled)
	assert.False(t, s.IncludeURIInSeed)
	assert.Empty(t, s.Targets)
}

func TestSettingsBuilder_SolanaChainID(t *testing.T) {
	s, err := NewSettings(ChainSolana, "example.com", "https://example.com", "salt").Build()

	require.NoError(t, err)
	assert.Equal(t, "mainnet", s.ChainID)
}

func TestSettingsBuilder_Options(t *testing.T) {
	targets := [][]byte{[]byte("canister-a"), []byte("canister-b")}

	s, err := NewSettings(ChainEthereum, "example.com", "https://example.com", "salt").
		WithStatement("Sign in to Example").
		WithChainID("17000").
		WithSignInTTL(time.Minute).
		WithSessionTTL(2 * time.Hour).
		WithDelegationTTLMax(time.Hour).
		WithURIInSeed().
		WithNonce().
		WithoutAddressMapping().
		WithoutIdentityMapping().
		WithTargets(targets).
		Build()

	require.NoError(t, err)
	assert.Equal(t, "Sign in to Example", s.Statement)
	assert.Equal(t, "17000", s.ChainID)
	assert.Equal(t, time.Minute, s.SignInTTL)
	assert.Equal(t, 2*time.Hour, s.SessionTTL)
	assert.Equal(t, time.Hour, s.DelegationTTLMax)
	assert.True(t, s.IncludeURIInSeed)
	assert.True(t, s.NonceEnabled)
	assert.True(t, s.DisableAddressMapping)
	assert.True(t, s.DisableIdentityMapping)
	assert.Equal(t, targets, s.Targets)
}

func TestSettingsBuilder_CopiesTargets(t *testing.T) {
	target := []byte("canister-a")

	s, err := NewSettings(ChainEthereum, "example.com", "https://example.com", "salt").
		WithTargets([][]byte{target}).
		Build()
	require.NoError(t, err)

	target[0] = 'X'

	assert.Equal(t, []byte("canister-a"), s.Targets[0])
}

func TestSettingsBuilder_Validation(t *testing.T) {
	valid := func() *SettingsBuilder {
		return NewSettings(ChainEthereum, "example.com", "https://example.com", "salt")
	}

	cases := []struct {
		name    string
		builder *SettingsBuilder
	}{
		{"unsupported chain", NewSettings(Chain("bitcoin"), "example.com", "https://example.com", "salt")},
		{"empty domain", NewSettings(ChainEthereum, "", "https://example.com", "salt")},
		{"domain with whitespace", NewSettings(ChainEthereum, "exa mple.com", "https://example.com", "salt")},
		{"empty statement", valid().WithStatement("")},
		{"multiline statement", valid().WithStatement("line one\nline two")},
		{"empty uri", NewSettings(ChainEthereum, "example.com", "", "salt")},
		{"invalid uri", NewSettings(ChainEthereum, "example.com", "not a uri", "salt")},
		{"empty salt", NewSettings(ChainEthereum, "example.com", "https://example.com", "")},
		{"empty chain id", valid().WithChainID("")},
		{"chain id with newline", valid().WithChainID("1\n2")},
		{"zero sign-in ttl", valid().WithSignInTTL(0)},
		{"negative session ttl", valid().WithSessionTTL(-time.Minute)},
		{"zero delegation ttl max", valid().WithDelegationTTLMax(0)},
		{"empty target", valid().WithTargets([][]byte{{}})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			assert.Error(t, err)
		})
	}
}

func TestSettings_SessionDuration(t *testing.T) {
	base := NewSettings(ChainEthereum, "example.com", "https://example.com", "salt")

	s, err := base.WithSessionTTL(30 * time.Minute).WithDelegationTTLMax(time.Hour).Build()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, s.SessionDuration())

	s, err = NewSettings(ChainEthereum, "example.com", "https://example.com", "salt").
		WithSessionTTL(2 * time.Hour).
		WithDelegationTTLMax(time.Hour).
		Build()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.SessionDuration())
}
