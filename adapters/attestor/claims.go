package attestor

import "github.com/golang-jwt/jwt/v5"

// RootClaims combines standard claims with the attested tree root
type RootClaims struct {
	jwt.RegisteredClaims
	Root string `json:"root"` // 0x-prefixed hex of the 32 byte root hash
}
