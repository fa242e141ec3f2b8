package ports

import "github.com/layer-3/garuda/core"

// Verifier checks a wallet signature over exact message bytes
type Verifier interface {
	// Verify returns nil only when signature is a valid signature over
	// message by the claimed address. Failures classify as
	// core.ErrMalformedSignature, core.ErrAddressMismatch or
	// core.ErrInvalidSignature.
	Verify(message []byte, signature []byte, address core.Address) error
}
