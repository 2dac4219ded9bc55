// chacha20_test.go - ChaCha20 known-answer tests
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package chacha20

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockRFC7539(t *testing.T) {
	key, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	nonce, _ := hex.DecodeString("000000090000004a00000000")

	var k [KeySize]byte
	var n [NonceSize]byte
	copy(k[:], key)
	copy(n[:], nonce)

	ks := block(k, n, 1)
	want := "10f1e7e4d13b5915500fdd1fa32071c4c7d1f4c733c068030422aa9ac3d46c4" +
		"ed2826446079faa0914c2d705d98b02a2b5129cd1de164eb9cbd083e8a2503c4e"
	require.Equal(t, want, hex.EncodeToString(ks[:]))
}

func TestXORRoundTrip(t *testing.T) {
	key := make([]byte, KeySize)
	nonce := make([]byte, NonceSize)
	for i := range key {
		key[i] = byte(i)
	}
	for i := range nonce {
		nonce[i] = byte(100 + i)
	}

	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to exceed one block")
	ciphertext := make([]byte, len(plaintext))
	require.NoError(t, XOR(key, nonce, 0, ciphertext, plaintext))

	recovered := make([]byte, len(plaintext))
	require.NoError(t, XOR(key, nonce, 0, recovered, ciphertext))
	require.Equal(t, plaintext, recovered)
}

func TestInvalidArgument(t *testing.T) {
	require.ErrorIs(t, XOR(make([]byte, 31), make([]byte, NonceSize), 0, nil, nil), ErrInvalidArgument)
	require.ErrorIs(t, XOR(make([]byte, KeySize), make([]byte, 11), 0, nil, nil), ErrInvalidArgument)
}
