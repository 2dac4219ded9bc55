// dh_test.go - Diffie-Hellman tests
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package dh

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedSecretAgrees(t *testing.T) {
	a := FromPrivate(big.NewInt(0x12345))
	b := FromPrivate(big.NewInt(0xabcdef))

	sharedA := Shared(b.Pub, a.Priv)
	sharedB := Shared(a.Pub, b.Priv)
	require.Equal(t, sharedA, sharedB)
}

func TestPubBytesRoundTrip(t *testing.T) {
	kp := FromPrivate(big.NewInt(7))
	encoded := PubBytes(kp.Pub)
	require.Len(t, encoded, Size)

	decoded := PubFromBytes(encoded[:])
	require.Equal(t, 0, kp.Pub.Cmp(decoded))
}

func TestPubBytesPreservesLeadingZeros(t *testing.T) {
	// g^1 mod p == g, which is tiny; its 256-byte encoding must be almost
	// entirely zero padding, not a short slice.
	kp := FromPrivate(big.NewInt(1))
	encoded := PubBytes(kp.Pub)
	require.Equal(t, byte(0), encoded[0])
	require.Equal(t, byte(2), encoded[Size-1])
}

func TestGenerateProducesDistinctKeys(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	require.NotEqual(t, 0, a.Priv.Cmp(b.Priv))
}

func TestDestroyZeroesPrivate(t *testing.T) {
	kp := FromPrivate(big.NewInt(0xdeadbeef))
	kp.Destroy()
	require.Equal(t, 0, kp.Priv.Cmp(big.NewInt(0)))
}
