package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/layer-3/garuda/adapters/attestor"
	"github.com/layer-3/garuda/adapters/events"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/adapters/verifier"
	"github.com/layer-3/garuda/config"
	"github.com/layer-3/garuda/ports"
	"github.com/layer-3/garuda/service"
	httptransport "github.com/layer-3/garuda/transport/http"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sign-in server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	signKey, err := loadSigningKey(cfg.SigningKeyPath)
	if err != nil {
		return err
	}

	clock := ports.SystemClock{}

	att, err := attestor.NewJWT(signKey, clock)
	if err != nil {
		return err
	}

	var identities ports.IdentityStore
	var eventPub ports.EventPublisher

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return fmt.Errorf("creating redis publisher: %w", err)
		}

		identities = store.NewRedisStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)

		log.Info().Msg("using redis identity store and event stream")
	} else {
		identities = store.NewMemoryStore()
		log.Info().Msg("using in-memory identity store, logins will not survive restarts")
	}

	authService := service.NewAuthService(settings, verifier.New(), identities, att, eventPub, clock)

	router := httptransport.SetupRouter(authService)

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("chain", string(settings.Chain)).
		Str("domain", settings.Domain).
		Msg("starting server")

	return router.Run(cfg.ListenAddr)
}

// loadSigningKey reads an ECDSA P-256 key in PEM form, or generates an
// ephemeral one when no path is configured. Ephemeral keys invalidate all
// previously issued certificates on restart.
func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		log.Warn().Msg("no signing key configured, generating an ephemeral key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("signing key %s: no PEM block found", path)
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("signing key %s: %w", path, err)
		}
		if key.Curve != elliptic.P256() {
			return nil, fmt.Errorf("signing key %s: must use curve P-256, got %s", path, key.Curve.Params().Name)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("signing key %s: %w", path, err)
		}
		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key %s: not an ECDSA key", path)
		}
		if key.Curve != elliptic.P256() {
			return nil, fmt.Errorf("signing key %s: must use curve P-256, got %s", path, key.Curve.Params().Name)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("signing key %s: unsupported PEM type %q", path, block.Type)
	}
}
