package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/layer-3/garuda/certtree"
)

// Domain separation labels for the hashes derived here. Changing any of
// them changes every identity and delegation hash, so they are versioned.
const (
	seedLabel        = "garuda-identity-seed-v1"
	delegationLabel  = "garuda-delegation-v1"
	identityKeyLabel = "garuda-identity-key-v1"
)

// CertifiedKeyLength is the length of keys in the certified tree: an
// identity seed followed by a delegation hash
const CertifiedKeyLength = 64

// IdentitySeed is the stable platform identity derived from a wallet
// address. Equal addresses under equal settings always derive equal seeds.
type IdentitySeed [32]byte

func (s IdentitySeed) Bytes() []byte { return s[:] }

// String returns the 0x-prefixed hex form used in APIs and events
func (s IdentitySeed) String() string { return hexutil.Encode(s[:]) }

// ParseIdentitySeed parses the 0x-prefixed hex form
func ParseIdentitySeed(text string) (IdentitySeed, error) {
	raw, err := hexutil.Decode(text)
	if err != nil || len(raw) != len(IdentitySeed{}) {
		return IdentitySeed{}, fmt.Errorf("%w: %q is not a 32 byte hex identity", ErrInvalidIdentity, text)
	}
	var seed IdentitySeed
	copy(seed[:], raw)
	return seed, nil
}

// DeriveIdentitySeed derives the identity seed for an address under the
// given settings. All fields are length prefixed so distinct inputs cannot
// collide by concatenation.
func DeriveIdentitySeed(addr Address, s Settings) IdentitySeed {
	h := sha256.New()
	writeLengthPrefixed(h, []byte(seedLabel))
	writeLengthPrefixed(h, []byte(s.Salt))
	writeLengthPrefixed(h, addr.Bytes())
	if s.IncludeURIInSeed {
		writeLengthPrefixed(h, []byte(s.URI))
	}
	var seed IdentitySeed
	copy(seed[:], h.Sum(nil))
	return seed
}

// Delegation grants a session key the right to act as a derived identity
// until expiration, optionally restricted to targets
type Delegation struct {
	Pubkey     []byte
	Expiration uint64
	Targets    [][]byte
}

// NewDelegation copies the session key and targets so later mutations by the
// caller cannot reach the stored delegation
func NewDelegation(sessionKey []byte, expiration uint64, targets [][]byte) Delegation {
	d := Delegation{
		Pubkey:     append([]byte(nil), sessionKey...),
		Expiration: expiration,
	}
	if len(targets) > 0 {
		d.Targets = make([][]byte, len(targets))
		for i, t := range targets {
			d.Targets[i] = append([]byte(nil), t...)
		}
	}
	return d
}

// Hash returns the canonical delegation hash committed to the certified tree
func (d Delegation) Hash() [32]byte {
	h := sha256.New()
	writeLengthPrefixed(h, []byte(delegationLabel))
	writeLengthPrefixed(h, d.Pubkey)

	var exp [8]byte
	binary.BigEndian.PutUint64(exp[:], d.Expiration)
	h.Write(exp[:])

	var count [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(count[:], uint64(len(d.Targets)))
	h.Write(count[:n])
	for _, t := range d.Targets {
		writeLengthPrefixed(h, t)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Expired reports whether the delegation is past its expiration at now
func (d Delegation) Expired(now time.Time) bool {
	return uint64(now.UnixNano()) >= d.Expiration
}

// CertifiedKey is the tree key binding an identity to a delegation
func CertifiedKey(seed IdentitySeed, delegationHash [32]byte) []byte {
	key := make([]byte, 0, CertifiedKeyLength)
	key = append(key, seed[:]...)
	key = append(key, delegationHash[:]...)
	return key
}

// NewIdentityPublicKey composes the public identity blob returned by login:
// the attestor public key and the seed, length prefixed under a versioned
// label. A client holding it derives the same platform identity across
// sessions.
func NewIdentityPublicKey(platformKey []byte, seed IdentitySeed) []byte {
	var b bytes.Buffer
	writeLengthPrefixed(&b, []byte(identityKeyLabel))
	writeLengthPrefixed(&b, platformKey)
	writeLengthPrefixed(&b, seed[:])
	return b.Bytes()
}

// SignedDelegation pairs a delegation with the platform proof of its
// presence in the certified tree
type SignedDelegation struct {
	Delegation Delegation
	Signature  []byte
}

// CertifiedSignature is the decoded form of a signed delegation's signature:
// the attestor certificate over the root hash and the witness from the
// delegation's leaf to that root. It travels RLP encoded.
type CertifiedSignature struct {
	Certificate []byte
	Witness     certtree.Witness
}

// Encode renders the canonical RLP form
func (c CertifiedSignature) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(c)
}

// DecodeCertifiedSignature parses the RLP form
func DecodeCertifiedSignature(b []byte) (CertifiedSignature, error) {
	var c CertifiedSignature
	if err := rlp.DecodeBytes(b, &c); err != nil {
		return CertifiedSignature{}, fmt.Errorf("malformed certified signature: %w", err)
	}
	return c, nil
}

func writeLengthPrefixed(w io.Writer, b []byte) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(b)))
	w.Write(buf[:n])
	w.Write(b)
}
