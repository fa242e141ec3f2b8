package ports

import (
	"context"

	"github.com/layer-3/garuda/core"
)

// IdentityStore keeps the address to identity lookup tables populated on
// successful logins. Each direction is written independently so deployments
// can disable one without the other.
type IdentityStore interface {
	MapAddress(ctx context.Context, address core.Address, seed core.IdentitySeed) error
	MapIdentity(ctx context.Context, seed core.IdentitySeed, address core.Address) error

	// SeedByAddress reports core.ErrIdentityNotFound for unknown addresses,
	// AddressBySeed core.ErrAddressNotFound for unknown identities
	SeedByAddress(ctx context.Context, address core.Address) (core.IdentitySeed, error)
	AddressBySeed(ctx context.Context, seed core.IdentitySeed) (string, error)
}
