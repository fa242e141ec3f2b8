package verifier

import (
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/garuda/core"
)

// Solana verifies ed25519 signatures over the raw message bytes, the address
// being the public key itself
type Solana struct{}

func (Solana) Verify(message, signature []byte, address core.Address) error {
	if address.Chain() != core.ChainSolana {
		return fmt.Errorf("%w: expected a solana address", core.ErrInvalidAddress)
	}
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", core.ErrMalformedSignature, ed25519.SignatureSize, len(signature))
	}

	if !ed25519.Verify(ed25519.PublicKey(address.Bytes()), message, signature) {
		return core.ErrInvalidSignature
	}

	return nil
}
