package certtree

import (
	"bytes"
	"crypto/sha256"
	mrand "math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyLen = 8

// testKeys derives n distinct deterministic keys
func testKeys(n int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		sum := sha256.Sum256([]byte{byte(i), byte(i >> 8)})
		keys[i] = sum[:testKeyLen]
	}
	return keys
}

func TestNew_RejectsInvalidKeyLength(t *testing.T) {
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(-1) })
}

func TestTree_EmptyRoot(t *testing.T) {
	tree := New(testKeyLen)

	assert.Equal(t, sha256.Sum256(nil), tree.RootHash())
	assert.Equal(t, 0, tree.Size())
}

func TestTree_SingleKey(t *testing.T) {
	tree := New(testKeyLen)
	key := testKeys(1)[0]

	require.True(t, tree.Insert(key))

	assert.Equal(t, LeafHash(key), tree.RootHash())
	assert.Equal(t, 1, tree.Size())
	assert.True(t, tree.Contains(key))

	witness, err := tree.Witness(key)
	require.NoError(t, err)
	assert.Empty(t, witness)
	assert.Equal(t, tree.RootHash(), witness.Reconstruct(LeafHash(key)))
}

func TestTree_TwoKeysOrderedByBytes(t *testing.T) {
	lo := bytes.Repeat([]byte{0x00}, testKeyLen)
	hi := bytes.Repeat([]byte{0xff}, testKeyLen)
	want := innerHash(LeafHash(lo), LeafHash(hi))

	forward := New(testKeyLen)
	require.True(t, forward.Insert(lo))
	require.True(t, forward.Insert(hi))

	reverse := New(testKeyLen)
	require.True(t, reverse.Insert(hi))
	require.True(t, reverse.Insert(lo))

	assert.Equal(t, want, forward.RootHash())
	assert.Equal(t, want, reverse.RootHash())
}

func TestTree_InsertDuplicate(t *testing.T) {
	tree := New(testKeyLen)
	key := testKeys(1)[0]

	require.True(t, tree.Insert(key))
	rootBefore := tree.RootHash()

	assert.False(t, tree.Insert(key))
	assert.Equal(t, rootBefore, tree.RootHash())
	assert.Equal(t, 1, tree.Size())
}

func TestTree_RootIndependentOfInsertionOrder(t *testing.T) {
	keys := testKeys(32)

	reference := New(testKeyLen)
	for _, k := range keys {
		require.True(t, reference.Insert(k))
	}

	for seed := int64(1); seed <= 5; seed++ {
		shuffled := make([][]byte, len(keys))
		copy(shuffled, keys)
		mrand.New(mrand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		tree := New(testKeyLen)
		for _, k := range shuffled {
			require.True(t, tree.Insert(k))
		}

		assert.Equal(t, reference.RootHash(), tree.RootHash())
	}
}

func TestTree_RemoveRestoresPreviousRoot(t *testing.T) {
	tree := New(testKeyLen)
	keys := testKeys(16)
	for _, k := range keys[:15] {
		require.True(t, tree.Insert(k))
	}
	rootBefore := tree.RootHash()

	require.True(t, tree.Insert(keys[15]))
	require.NotEqual(t, rootBefore, tree.RootHash())

	require.NoError(t, tree.Remove(keys[15]))

	assert.Equal(t, rootBefore, tree.RootHash())
	assert.Equal(t, 15, tree.Size())
	assert.False(t, tree.Contains(keys[15]))
}

func TestTree_RemoveAbsent(t *testing.T) {
	tree := New(testKeyLen)
	keys := testKeys(3)

	assert.ErrorIs(t, tree.Remove(keys[0]), ErrNotFound)

	require.True(t, tree.Insert(keys[0]))
	require.True(t, tree.Insert(keys[1]))

	assert.ErrorIs(t, tree.Remove(keys[2]), ErrNotFound)
	assert.Equal(t, 2, tree.Size())
}

func TestTree_RemoveAll(t *testing.T) {
	tree := New(testKeyLen)
	keys := testKeys(8)
	for _, k := range keys {
		require.True(t, tree.Insert(k))
	}

	for _, k := range keys {
		require.NoError(t, tree.Remove(k))
	}

	assert.Equal(t, 0, tree.Size())
	assert.Equal(t, sha256.Sum256(nil), tree.RootHash())
}

func TestTree_WitnessReconstructsRoot(t *testing.T) {
	tree := New(testKeyLen)
	keys := testKeys(20)
	for _, k := range keys {
		require.True(t, tree.Insert(k))
	}
	root := tree.RootHash()

	for _, k := range keys {
		witness, err := tree.Witness(k)
		require.NoError(t, err)
		assert.Equal(t, root, witness.Reconstruct(LeafHash(k)))
	}
}

func TestTree_WitnessAbsentKey(t *testing.T) {
	tree := New(testKeyLen)
	keys := testKeys(5)
	for _, k := range keys[:4] {
		require.True(t, tree.Insert(k))
	}

	_, err := tree.Witness(keys[4])
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = New(testKeyLen).Witness(keys[0])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTree_WitnessBreaksForOtherLeaf(t *testing.T) {
	tree := New(testKeyLen)
	keys := testKeys(4)
	for _, k := range keys {
		require.True(t, tree.Insert(k))
	}

	witness, err := tree.Witness(keys[0])
	require.NoError(t, err)

	assert.NotEqual(t, tree.RootHash(), witness.Reconstruct(LeafHash(keys[1])))
}

func TestTree_KeysSorted(t *testing.T) {
	tree := New(testKeyLen)
	keys := testKeys(24)
	for _, k := range keys {
		require.True(t, tree.Insert(k))
	}

	got := tree.Keys()

	require.Len(t, got, len(keys))
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
		return bytes.Compare(got[i], got[j]) < 0
	}))

	want := make([][]byte, len(keys))
	copy(want, keys)
	sort.Slice(want, func(i, j int) bool { return bytes.Compare(want[i], want[j]) < 0 })
	assert.Equal(t, want, got)
}

func TestTree_ChurnKeepsCanonicalRoot(t *testing.T) {
	// Interleave inserts and removes so released nodes get reused, then
	// check the root still matches a fresh tree over the surviving set.
	keys := testKeys(40)
	tree := New(testKeyLen)

	for _, k := range keys {
		require.True(t, tree.Insert(k))
	}
	for _, k := range keys[:20] {
		require.NoError(t, tree.Remove(k))
	}
	for _, k := range keys[:10] {
		require.True(t, tree.Insert(k))
	}

	fresh := New(testKeyLen)
	for _, k := range keys[:10] {
		require.True(t, fresh.Insert(k))
	}
	for _, k := range keys[20:] {
		require.True(t, fresh.Insert(k))
	}

	assert.Equal(t, fresh.RootHash(), tree.RootHash())
	assert.Equal(t, fresh.Size(), tree.Size())
}

func TestTree_PanicsOnWrongKeyLength(t *testing.T) {
	tree := New(testKeyLen)

	assert.Panics(t, func() { tree.Insert(make([]byte, testKeyLen+1)) })
	assert.Panics(t, func() { tree.Contains(make([]byte, testKeyLen-1)) })
	assert.Panics(t, func() { _ = tree.Remove(nil) })
}

func TestLeafHash_DomainSeparated(t *testing.T) {
	key := testKeys(1)[0]

	// A leaf hash must differ from the bare hash of the key and from an
	// inner hash over any children.
	assert.NotEqual(t, sha256.Sum256(key), LeafHash(key))
	assert.NotEqual(t, LeafHash(key), innerHash(LeafHash(key), LeafHash(key)))
}
