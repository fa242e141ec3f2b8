package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/layer-3/garuda/core"
)

// Config holds the runtime configuration for the garuda server. Values come
// from an optional YAML file and from GARUDA_ environment variables, with the
// environment taking precedence.
type Config struct {
	ListenAddr     string `mapstructure:"listen_addr"`
	RedisURL       string `mapstructure:"redis_url"`
	SigningKeyPath string `mapstructure:"signing_key_path"`
	LogLevel       string `mapstructure:"log_level"`

	Chain     string `mapstructure:"chain"`
	Domain    string `mapstructure:"domain"`
	URI       string `mapstructure:"uri"`
	Salt      string `mapstructure:"salt"`
	Statement string `mapstructure:"statement"`
	ChainID   string `mapstructure:"chain_id"`

	SignInTTL        time.Duration `mapstructure:"sign_in_ttl"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	DelegationTTLMax time.Duration `mapstructure:"delegation_ttl_max"`

	URIInSeed              bool `mapstructure:"uri_in_seed"`
	DisableAddressMapping  bool `mapstructure:"disable_address_mapping"`
	DisableIdentityMapping bool `mapstructure:"disable_identity_mapping"`
	NonceEnabled           bool `mapstructure:"nonce_enabled"`

	// Targets lists base64-encoded delegation targets; empty means the issued
	// delegations are unrestricted.
	Targets []string `mapstructure:"targets"`
}

// Load reads configuration from the given file path, or from garuda.yaml in
// the working directory when path is empty. A missing default file is fine;
// environment variables alone can configure the server.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":9000")
	v.SetDefault("redis_url", "")
	v.SetDefault("signing_key_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("chain", string(core.ChainEthereum))
	v.SetDefault("domain", "")
	v.SetDefault("uri", "")
	v.SetDefault("salt", "")
	v.SetDefault("statement", "")
	v.SetDefault("chain_id", "")
	v.SetDefault("sign_in_ttl", time.Duration(0))
	v.SetDefault("session_ttl", time.Duration(0))
	v.SetDefault("delegation_ttl_max", time.Duration(0))
	v.SetDefault("uri_in_seed", false)
	v.SetDefault("disable_address_mapping", false)
	v.SetDefault("disable_identity_mapping", false)
	v.SetDefault("nonce_enabled", true)
	v.SetDefault("targets", []string{})

	v.SetEnvPrefix("GARUDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else {
		v.SetConfigName("garuda")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Settings converts the loaded configuration into validated sign-in settings
func (c Config) Settings() (core.Settings, error) {
	builder := core.NewSettings(core.Chain(c.Chain), c.Domain, c.URI, c.Salt)

	if c.Statement != "" {
		builder.WithStatement(c.Statement)
	}
	if c.ChainID != "" {
		builder.WithChainID(c.ChainID)
	}
	if c.SignInTTL > 0 {
		builder.WithSignInTTL(c.SignInTTL)
	}
	if c.SessionTTL > 0 {
		builder.WithSessionTTL(c.SessionTTL)
	}
	if c.DelegationTTLMax > 0 {
		builder.WithDelegationTTLMax(c.DelegationTTLMax)
	}
	if c.URIInSeed {
		builder.WithURIInSeed()
	}
	if c.NonceEnabled {
		builder.WithNonce()
	}
	if c.DisableAddressMapping {
		builder.WithoutAddressMapping()
	}
	if c.DisableIdentityMapping {
		builder.WithoutIdentityMapping()
	}
	if len(c.Targets) > 0 {
		targets := make([][]byte, len(c.Targets))
		for i, t := range c.Targets {
			raw, err := base64.StdEncoding.DecodeString(t)
			if err != nil {
				return core.Settings{}, fmt.Errorf("config: target %d is not valid base64: %w", i, err)
			}
			targets[i] = raw
		}
		builder.WithTargets(targets)
	}

	return builder.Build()
}
