package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// RedisStore is a Redis implementation of the IdentityStore interface,
// shared by instances serving the same deployment. Mappings are stable
// facts, so keys carry no expiration.
type RedisStore struct {
	client        *redis.Client
	seedPrefix    string
	addressPrefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.IdentityStore {
	return &RedisStore{
		client:        client,
		seedPrefix:    "garuda:identity:",
		addressPrefix: "garuda:address:",
	}
}

// MapAddress records the address to identity direction
func (s *RedisStore) MapAddress(ctx context.Context, address core.Address, seed core.IdentitySeed) error {
	key := s.seedPrefix + address.String()

	if err := s.client.Set(ctx, key, seed.String(), 0).Err(); err != nil {
		return fmt.Errorf("failed to store identity mapping: %w", err)
	}
	return nil
}

// MapIdentity records the identity to address direction
func (s *RedisStore) MapIdentity(ctx context.Context, seed core.IdentitySeed, address core.Address) error {
	key := s.addressPrefix + seed.String()

	if err := s.client.Set(ctx, key, address.String(), 0).Err(); err != nil {
		return fmt.Errorf("failed to store address mapping: %w", err)
	}
	return nil
}

// SeedByAddress looks up the identity derived for an address
func (s *RedisStore) SeedByAddress(ctx context.Context, address core.Address) (core.IdentitySeed, error) {
	key := s.seedPrefix + address.String()

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return core.IdentitySeed{}, core.ErrIdentityNotFound
	}
	if err != nil {
		return core.IdentitySeed{}, fmt.Errorf("failed to look up identity: %w", err)
	}

	return core.ParseIdentitySeed(val)
}

// AddressBySeed looks up the address an identity was derived from
func (s *RedisStore) AddressBySeed(ctx context.Context, seed core.IdentitySeed) (string, error) {
	key := s.addressPrefix + seed.String()

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrAddressNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up address: %w", err)
	}

	return val, nil
}
