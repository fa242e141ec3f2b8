package attestor

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

const AudienceRoot = "certified:root"

// JWT is a local attestor: it countersigns tree roots as ES256 JWS
// certificates over a P-256 key. Deployments with a platform attestation
// service replace it behind the same port.
type JWT struct {
	signKey *ecdsa.PrivateKey
	pubDER  []byte
	clock   ports.Clock

	mu   sync.RWMutex
	cert []byte
}

// NewJWT creates a JWT attestor signing with the given P-256 key
func NewJWT(signKey *ecdsa.PrivateKey, clock ports.Clock) (ports.Attestor, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(&signKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attestor public key: %w", err)
	}
	return &JWT{signKey: signKey, pubDER: pubDER, clock: clock}, nil
}

// SetRoot certifies a new tree root. The certificate is minted once here and
// served unchanged until the next root.
func (a *JWT) SetRoot(ctx context.Context, root [32]byte) error {
	claims := RootClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			IssuedAt: jwt.NewNumericDate(a.clock.Now()),
			Audience: jwt.ClaimStrings{AudienceRoot},
		},
		Root: hexutil.Encode(root[:]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(a.signKey)
	if err != nil {
		return fmt.Errorf("failed to sign root certificate: %w", err)
	}

	a.mu.Lock()
	a.cert = []byte(signed)
	a.mu.Unlock()

	return nil
}

// Certificate returns the certificate for the last committed root
func (a *JWT) Certificate(ctx context.Context) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.cert == nil {
		return nil, core.ErrAttestationUnavailable
	}
	return append([]byte(nil), a.cert...), nil
}

// PublicKey returns the DER encoded verification key
func (a *JWT) PublicKey() []byte {
	return append([]byte(nil), a.pubDER...)
}

// VerifyCertificate checks a certificate against a DER encoded attestor
// public key and returns the root hash it attests
func VerifyCertificate(cert []byte, pubDER []byte) ([32]byte, error) {
	var zero [32]byte

	parsed, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return zero, fmt.Errorf("failed to parse attestor public key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return zero, fmt.Errorf("attestor public key is not ECDSA")
	}

	token, err := jwt.ParseWithClaims(string(cert), &RootClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return pub, nil
	}, jwt.WithAudience(AudienceRoot))
	if err != nil {
		return zero, fmt.Errorf("failed to parse certificate: %w", err)
	}

	if !token.Valid {
		return zero, fmt.Errorf("invalid certificate")
	}

	claims, ok := token.Claims.(*RootClaims)
	if !ok {
		return zero, fmt.Errorf("invalid claims type")
	}

	raw, err := hexutil.Decode(claims.Root)
	if err != nil || len(raw) != len(zero) {
		return zero, fmt.Errorf("invalid root claim %q", claims.Root)
	}

	var root [32]byte
	copy(root[:], raw)
	return root, nil
}
