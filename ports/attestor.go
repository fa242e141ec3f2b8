package ports

import "context"

// Attestor is the platform boundary certifying tree roots. The login service
// commits each new root with SetRoot and hands out the resulting certificate
// with delegations; it never signs roots itself.
type Attestor interface {
	SetRoot(ctx context.Context, root [32]byte) error
	Certificate(ctx context.Context) ([]byte, error)

	// PublicKey returns the DER encoded key certificates verify against
	PublicKey() []byte
}
