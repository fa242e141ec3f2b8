// Package certtree implements the certified key set behind delegation
// witnesses: a binary Merkle trie whose nodes live in an index addressed
// arena and whose shape, and therefore root hash, is a pure function of the
// key set. Keys branch on their first differing bit, most significant bit
// first, so an in-order walk yields keys in byte lexicographic order and
// every mutation rehashes only the root-to-leaf path it touched.
package certtree

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/bits"
)

var ErrNotFound = errors.New("certtree: key not found")

const (
	leafPrefix  = 0x00
	innerPrefix = 0x01
)

const nilIdx = int32(-1)

const (
	leafNode uint8 = iota
	innerNode
)

type node struct {
	kind uint8
	// bit is the index of the first bit, MSB first, on which the two
	// subtrees of an inner node differ. It only grows along any
	// root-to-leaf path.
	bit   uint32
	left  int32
	right int32
	key   []byte
	hash  [32]byte
}

// Tree holds a set of fixed length keys with zero length values. The zero
// value is not usable; construct with New. Not safe for concurrent use,
// callers serialize access.
type Tree struct {
	keyLen   int
	nodes    []node
	freeList []int32
	root     int32
	size     int
}

// New returns an empty tree over keys of exactly keyLen bytes
func New(keyLen int) *Tree {
	if keyLen <= 0 {
		panic(fmt.Sprintf("certtree: invalid key length %d", keyLen))
	}
	return &Tree{keyLen: keyLen, root: nilIdx}
}

// Size returns the number of keys in the tree
func (t *Tree) Size() int { return t.size }

// RootHash returns the Merkle root over the current key set. The root of an
// empty tree is the hash of no input.
func (t *Tree) RootHash() [32]byte {
	if t.root == nilIdx {
		return sha256.Sum256(nil)
	}
	return t.nodes[t.root].hash
}

// Insert adds a key and rehashes the path to it. Inserting a key that is
// already present leaves the tree untouched; the return value reports
// whether the key was actually added.
func (t *Tree) Insert(key []byte) bool {
	t.checkKey(key)

	if t.root == nilIdx {
		t.root = t.newLeaf(key)
		t.size++
		return true
	}

	// Find the nearest existing leaf and the first bit distinguishing the
	// new key from it.
	idx := t.root
	for t.nodes[idx].kind == innerNode {
		n := t.nodes[idx]
		if bitAt(key, n.bit) == 0 {
			idx = n.left
		} else {
			idx = n.right
		}
	}
	diff, ok := firstDiffBit(key, t.nodes[idx].key)
	if !ok {
		return false
	}

	// Descend again, stopping before the first node that branches on a
	// later bit than the distinguishing one. That node is displaced by a
	// new inner node.
	var path []int32
	idx = t.root
	for t.nodes[idx].kind == innerNode && t.nodes[idx].bit < diff {
		path = append(path, idx)
		n := t.nodes[idx]
		if bitAt(key, n.bit) == 0 {
			idx = n.left
		} else {
			idx = n.right
		}
	}

	leaf := t.newLeaf(key)
	inner := t.alloc()
	n := &t.nodes[inner]
	n.kind = innerNode
	n.bit = diff
	if bitAt(key, diff) == 1 {
		n.left, n.right = idx, leaf
	} else {
		n.left, n.right = leaf, idx
	}
	t.rehash(inner)

	if len(path) == 0 {
		t.root = inner
	} else {
		p := &t.nodes[path[len(path)-1]]
		if p.left == idx {
			p.left = inner
		} else {
			p.right = inner
		}
	}
	for i := len(path) - 1; i >= 0; i-- {
		t.rehash(path[i])
	}

	t.size++
	return true
}

// Remove deletes a key and rehashes the path that led to it. Removing an
// absent key reports ErrNotFound and leaves the tree untouched.
func (t *Tree) Remove(key []byte) error {
	t.checkKey(key)

	if t.root == nilIdx {
		return ErrNotFound
	}

	var path []int32
	idx := t.root
	for t.nodes[idx].kind == innerNode {
		path = append(path, idx)
		n := t.nodes[idx]
		if bitAt(key, n.bit) == 0 {
			idx = n.left
		} else {
			idx = n.right
		}
	}
	if !bytes.Equal(t.nodes[idx].key, key) {
		return ErrNotFound
	}

	t.release(idx)
	t.size--

	if len(path) == 0 {
		t.root = nilIdx
		return nil
	}

	// The leaf's parent collapses into the sibling subtree.
	parent := path[len(path)-1]
	pn := t.nodes[parent]
	sibling := pn.left
	if sibling == idx {
		sibling = pn.right
	}
	t.release(parent)

	if len(path) == 1 {
		t.root = sibling
		return nil
	}
	g := &t.nodes[path[len(path)-2]]
	if g.left == parent {
		g.left = sibling
	} else {
		g.right = sibling
	}
	for i := len(path) - 2; i >= 0; i-- {
		t.rehash(path[i])
	}
	return nil
}

// Contains reports whether a key is present
func (t *Tree) Contains(key []byte) bool {
	t.checkKey(key)
	if t.root == nilIdx {
		return false
	}
	idx := t.root
	for t.nodes[idx].kind == innerNode {
		n := t.nodes[idx]
		if bitAt(key, n.bit) == 0 {
			idx = n.left
		} else {
			idx = n.right
		}
	}
	return bytes.Equal(t.nodes[idx].key, key)
}

// Witness returns the sibling hashes and directions that recompute the root
// from the key's leaf hash, ordered leaf to root. Absent keys report
// ErrNotFound.
func (t *Tree) Witness(key []byte) (Witness, error) {
	t.checkKey(key)

	if t.root == nilIdx {
		return nil, ErrNotFound
	}

	var steps []Step
	idx := t.root
	for t.nodes[idx].kind == innerNode {
		n := t.nodes[idx]
		if bitAt(key, n.bit) == 0 {
			steps = append(steps, Step{Sibling: t.nodes[n.right].hash, Dir: SiblingRight})
			idx = n.left
		} else {
			steps = append(steps, Step{Sibling: t.nodes[n.left].hash, Dir: SiblingLeft})
			idx = n.right
		}
	}
	if !bytes.Equal(t.nodes[idx].key, key) {
		return nil, ErrNotFound
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return Witness(steps), nil
}

// Keys returns all keys in byte lexicographic order
func (t *Tree) Keys() [][]byte {
	keys := make([][]byte, 0, t.size)
	if t.root == nilIdx {
		return keys
	}
	stack := []int32{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[idx]
		if n.kind == leafNode {
			keys = append(keys, append([]byte(nil), n.key...))
			continue
		}
		// Right pushed first so the left subtree is visited first.
		stack = append(stack, n.right, n.left)
	}
	return keys
}

func (t *Tree) newLeaf(key []byte) int32 {
	idx := t.alloc()
	n := &t.nodes[idx]
	n.kind = leafNode
	n.left, n.right = nilIdx, nilIdx
	n.key = append([]byte(nil), key...)
	n.hash = LeafHash(n.key)
	return idx
}

func (t *Tree) alloc() int32 {
	if l := len(t.freeList); l > 0 {
		idx := t.freeList[l-1]
		t.freeList = t.freeList[:l-1]
		t.nodes[idx] = node{left: nilIdx, right: nilIdx}
		return idx
	}
	t.nodes = append(t.nodes, node{left: nilIdx, right: nilIdx})
	return int32(len(t.nodes) - 1)
}

func (t *Tree) release(idx int32) {
	t.nodes[idx] = node{left: nilIdx, right: nilIdx}
	t.freeList = append(t.freeList, idx)
}

func (t *Tree) rehash(idx int32) {
	n := &t.nodes[idx]
	if n.kind != innerNode || n.left == nilIdx || n.right == nilIdx {
		panic("certtree: corrupted inner node")
	}
	n.hash = innerHash(t.nodes[n.left].hash, t.nodes[n.right].hash)
}

func (t *Tree) checkKey(key []byte) {
	if len(key) != t.keyLen {
		panic(fmt.Sprintf("certtree: key length %d, want %d", len(key), t.keyLen))
	}
}

func bitAt(key []byte, i uint32) byte {
	return (key[i/8] >> (7 - i%8)) & 1
}

func firstDiffBit(a, b []byte) (uint32, bool) {
	for i := range a {
		if x := a[i] ^ b[i]; x != 0 {
			return uint32(i*8 + bits.LeadingZeros8(x)), true
		}
	}
	return 0, false
}
