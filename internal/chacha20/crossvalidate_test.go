// crossvalidate_test.go - cross-check against golang.org/x/crypto
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package chacha20

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
	rtchacha20 "golang.org/x/crypto/chacha20"
)

// TestCrossValidateAgainstPlatformImplementation checks our from-scratch
// keystream against golang.org/x/crypto/chacha20 across random inputs.
// The production AEAD never imports golang.org/x/crypto/chacha20; this
// is test tooling only, used here to sanity-check the from-scratch
// implementation against a trusted reference.
func TestCrossValidateAgainstPlatformImplementation(t *testing.T) {
	for trial := 0; trial < 16; trial++ {
		key := make([]byte, KeySize)
		nonce := make([]byte, NonceSize)
		_, err := rand.Read(key)
		require.NoError(t, err)
		_, err = rand.Read(nonce)
		require.NoError(t, err)

		msgLen := trial * 37
		plaintext := make([]byte, msgLen)
		_, err = rand.Read(plaintext)
		require.NoError(t, err)

		ours := make([]byte, msgLen)
		require.NoError(t, XOR(key, nonce, 0, ours, plaintext))

		ref, err := rtchacha20.NewUnauthenticatedCipher(key, nonce)
		require.NoError(t, err)
		theirs := make([]byte, msgLen)
		ref.XORKeyStream(theirs, plaintext)

		require.Equal(t, theirs, ours, "trial %d", trial)
	}
}
