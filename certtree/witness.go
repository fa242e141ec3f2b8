package certtree

import "crypto/sha256"

// Step directions name the side the sibling hash sits on
const (
	SiblingLeft  uint8 = 0
	SiblingRight uint8 = 1
)

// Step is one level of a witness: the sibling subtree hash and which side
// of the running hash it combines on
type Step struct {
	Sibling [32]byte
	Dir     uint8
}

// Witness proves membership of a single leaf, ordered leaf to root
type Witness []Step

// Reconstruct folds the witness over a leaf hash and returns the root hash
// it implies. Membership holds when the result equals an attested root.
func (w Witness) Reconstruct(leaf [32]byte) [32]byte {
	h := leaf
	for _, s := range w {
		if s.Dir == SiblingLeft {
			h = innerHash(s.Sibling, h)
		} else {
			h = innerHash(h, s.Sibling)
		}
	}
	return h
}

// LeafHash is the domain separated hash of a key's leaf. Values are zero
// length presence markers and contribute no bytes.
func LeafHash(key []byte) [32]byte {
	b := make([]byte, 0, 1+len(key))
	b = append(b, leafPrefix)
	b = append(b, key...)
	return sha256.Sum256(b)
}

func innerHash(left, right [32]byte) [32]byte {
	b := make([]byte, 0, 1+len(left)+len(right))
	b = append(b, innerPrefix)
	b = append(b, left[:]...)
	b = append(b, right[:]...)
	return sha256.Sum256(b)
}
