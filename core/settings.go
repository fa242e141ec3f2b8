package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultStatement        = "Login to the app"
	DefaultSignInTTL        = 5 * time.Minute
	DefaultSessionTTL       = 30 * time.Minute
	DefaultDelegationTTLMax = 24 * time.Hour
)

// Settings is the immutable deployment configuration shared by the message
// codec, the seed deriver and the login service. It is built once at startup
// through SettingsBuilder and passed by value; callers must not modify it
// afterwards.
type Settings struct {
	Chain     Chain
	Domain    string
	Statement string
	URI       string
	Salt      string
	ChainID   string

	// SignInTTL bounds how long a prepared message stays valid, SessionTTL
	// how long an issued delegation lives, DelegationTTLMax caps the latter.
	SignInTTL        time.Duration
	SessionTTL       time.Duration
	DelegationTTLMax time.Duration

	// IncludeURIInSeed mixes the URI into identity seeds, giving each
	// frontend of a deployment its own identity space.
	IncludeURIInSeed bool

	// DisableAddressMapping suppresses address to identity records and
	// lookups, DisableIdentityMapping the reverse direction.
	DisableAddressMapping  bool
	DisableIdentityMapping bool

	// NonceEnabled draws a fresh nonce per prepared message instead of the
	// fixed placeholder.
	NonceEnabled bool

	// Targets optionally restricts what the issued delegations may be used
	// for; empty means unrestricted.
	Targets [][]byte
}

// SettingsBuilder assembles Settings with validation. Start from NewSettings.
type SettingsBuilder struct {
	s Settings
}

// NewSettings starts a builder with the required fields and defaults for
// everything else
func NewSettings(chain Chain, domain, uri, salt string) *SettingsBuilder {
	return &SettingsBuilder{s: Settings{
		Chain:            chain,
		Domain:           domain,
		URI:              uri,
		Salt:             salt,
		Statement:        DefaultStatement,
		ChainID:          defaultChainID(chain),
		SignInTTL:        DefaultSignInTTL,
		SessionTTL:       DefaultSessionTTL,
		DelegationTTLMax: DefaultDelegationTTLMax,
	}}
}

func defaultChainID(chain Chain) string {
	if chain == ChainSolana {
		return "mainnet"
	}
	return "1"
}

func (b *SettingsBuilder) WithStatement(statement string) *SettingsBuilder {
	b.s.Statement = statement
	return b
}

func (b *SettingsBuilder) WithChainID(chainID string) *SettingsBuilder {
	b.s.ChainID = chainID
	return b
}

func (b *SettingsBuilder) WithSignInTTL(ttl time.Duration) *SettingsBuilder {
	b.s.SignInTTL = ttl
	return b
}

func (b *SettingsBuilder) WithSessionTTL(ttl time.Duration) *SettingsBuilder {
	b.s.SessionTTL = ttl
	return b
}

func (b *SettingsBuilder) WithDelegationTTLMax(ttl time.Duration) *SettingsBuilder {
	b.s.DelegationTTLMax = ttl
	return b
}

func (b *SettingsBuilder) WithURIInSeed() *SettingsBuilder {
	b.s.IncludeURIInSeed = true
	return b
}

func (b *SettingsBuilder) WithNonce() *SettingsBuilder {
	b.s.NonceEnabled = true
	return b
}

func (b *SettingsBuilder) WithoutAddressMapping() *SettingsBuilder {
	b.s.DisableAddressMapping = true
	return b
}

func (b *SettingsBuilder) WithoutIdentityMapping() *SettingsBuilder {
	b.s.DisableIdentityMapping = true
	return b
}

func (b *SettingsBuilder) WithTargets(targets [][]byte) *SettingsBuilder {
	b.s.Targets = make([][]byte, len(targets))
	for i, t := range targets {
		b.s.Targets[i] = append([]byte(nil), t...)
	}
	return b
}

// Build validates the assembled settings and returns them
func (b *SettingsBuilder) Build() (Settings, error) {
	s := b.s

	if !s.Chain.Valid() {
		return Settings{}, fmt.Errorf("settings: unsupported chain %q", s.Chain)
	}
	if s.Domain == "" || strings.ContainsAny(s.Domain, " \t\n") {
		return Settings{}, fmt.Errorf("settings: domain %q must be a non-empty authority", s.Domain)
	}
	if s.Statement == "" || strings.Contains(s.Statement, "\n") {
		return Settings{}, fmt.Errorf("settings: statement must be a non-empty single line")
	}
	if s.URI == "" {
		return Settings{}, fmt.Errorf("settings: uri must not be empty")
	}
	if _, err := url.ParseRequestURI(s.URI); err != nil {
		return Settings{}, fmt.Errorf("settings: invalid uri: %w", err)
	}
	if s.Salt == "" {
		return Settings{}, fmt.Errorf("settings: salt must not be empty")
	}
	if s.ChainID == "" || strings.ContainsAny(s.ChainID, " \n") {
		return Settings{}, fmt.Errorf("settings: chain id %q must be a non-empty token", s.ChainID)
	}
	if s.SignInTTL <= 0 {
		return Settings{}, fmt.Errorf("settings: sign-in ttl must be positive")
	}
	if s.SessionTTL <= 0 {
		return Settings{}, fmt.Errorf("settings: session ttl must be positive")
	}
	if s.DelegationTTLMax <= 0 {
		return Settings{}, fmt.Errorf("settings: delegation ttl max must be positive")
	}
	for i, t := range s.Targets {
		if len(t) == 0 {
			return Settings{}, fmt.Errorf("settings: target %d must not be empty", i)
		}
	}

	return s, nil
}

// SessionDuration returns the delegation lifetime after applying the cap
func (s Settings) SessionDuration() time.Duration {
	if s.SessionTTL > s.DelegationTTLMax {
		return s.DelegationTTLMax
	}
	return s.SessionTTL
}
