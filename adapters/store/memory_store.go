package store

import (
	"context"
	"sync"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// MemoryStore is an in-memory implementation of the IdentityStore interface
type MemoryStore struct {
	seedsByAddress  map[string]core.IdentitySeed
	addressesBySeed map[core.IdentitySeed]string
	mu              sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.IdentityStore {
	return &MemoryStore{
		seedsByAddress:  make(map[string]core.IdentitySeed),
		addressesBySeed: make(map[core.IdentitySeed]string),
	}
}

// MapAddress records the address to identity direction
func (s *MemoryStore) MapAddress(ctx context.Context, address core.Address, seed core.IdentitySeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seedsByAddress[address.String()] = seed
	return nil
}

// MapIdentity records the identity to address direction
func (s *MemoryStore) MapIdentity(ctx context.Context, seed core.IdentitySeed, address core.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addressesBySeed[seed] = address.String()
	return nil
}

// SeedByAddress looks up the identity derived for an address
func (s *MemoryStore) SeedByAddress(ctx context.Context, address core.Address) (core.IdentitySeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seed, exists := s.seedsByAddress[address.String()]
	if !exists {
		return core.IdentitySeed{}, core.ErrIdentityNotFound
	}
	return seed, nil
}

// AddressBySeed looks up the address an identity was derived from
func (s *MemoryStore) AddressBySeed(ctx context.Context, seed core.IdentitySeed) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	address, exists := s.addressesBySeed[seed]
	if !exists {
		return "", core.ErrAddressNotFound
	}
	return address, nil
}
