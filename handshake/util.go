// util.go - handshake helpers
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package handshake

import (
	"crypto/rand"
	"crypto/subtle"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/dh"
)

func randNonce(buf []byte) error {
	_, err := rand.Read(buf)
	if err != nil {
		return dh.ErrRNGFailure
	}
	return nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
