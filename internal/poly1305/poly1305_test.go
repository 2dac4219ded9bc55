// poly1305_test.go - Poly1305 known-answer tests
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package poly1305

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRFC7539Vector(t *testing.T) {
	key, _ := hex.DecodeString("85d6be7857556d337f4452fe42d506a80103808afb0db2fd4abff6af4149f51b")
	msg := []byte("Cryptographic Forum Research Group")

	tag, err := Sum(key, msg)
	require.NoError(t, err)
	require.Equal(t, "a8061dc1305136c6c22b8baf0c0127a9", hex.EncodeToString(tag[:]))
}

func TestClamp(t *testing.T) {
	var key [16]byte
	for i := range key {
		key[i] = 0xff
	}
	clamped := clampedR(key)
	require.Equal(t, "0ffffffc0ffffffc0ffffffc0fffffff", hex.EncodeToString(reverse(clamped)))
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func TestInvalidKeySize(t *testing.T) {
	_, err := Sum(make([]byte, 31), nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEmptyMessage(t *testing.T) {
	key := make([]byte, KeySize)
	tag, err := Sum(key, nil)
	require.NoError(t, err)
	require.Equal(t, make([]byte, TagSize), tag[:])
}
