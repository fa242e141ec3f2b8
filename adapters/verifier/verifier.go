// Package verifier implements wallet signature verification for the
// supported chains
package verifier

import (
	"fmt"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// MultiChain dispatches verification on the address chain
type MultiChain struct {
	eth Ethereum
	sol Solana
}

// New creates a verifier covering all supported chains
func New() ports.Verifier {
	return &MultiChain{}
}

func (m *MultiChain) Verify(message, signature []byte, address core.Address) error {
	switch address.Chain() {
	case core.ChainEthereum:
		return m.eth.Verify(message, signature, address)
	case core.ChainSolana:
		return m.sol.Verify(message, signature, address)
	default:
		return fmt.Errorf("%w: unsupported chain %q", core.ErrInvalidAddress, address.Chain())
	}
}
