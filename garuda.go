// Package garuda implements wallet sign-in for Ethereum and Solana accounts
// with certified session delegations. Users sign a structured message with
// their wallet, the service derives a stable identity from the address and
// issues a delegation to the session key, and every issued delegation is
// anchored in a Merkle tree whose root is attested by the service key.
package garuda

import (
	"crypto/ecdsa"

	"github.com/layer-3/garuda/adapters/attestor"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/adapters/verifier"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
	"github.com/layer-3/garuda/service"
)

// New assembles the default in-process login service: multichain signature
// verification, in-memory identity mappings and an ES256 attestor signing
// with the given key. Deployments that need Redis persistence or event
// publishing wire service.NewAuthService themselves.
func New(settings core.Settings, signingKey *ecdsa.PrivateKey) (*service.AuthService, error) {
	clock := ports.SystemClock{}

	att, err := attestor.NewJWT(signingKey, clock)
	if err != nil {
		return nil, err
	}

	return service.NewAuthService(
		settings,
		verifier.New(),
		store.NewMemoryStore(),
		att,
		nil,
		clock,
	), nil
}
