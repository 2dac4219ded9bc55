// hmac_hkdf.go - HMAC-SHA256 and HKDF
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package hmachkdf implements HMAC-SHA256 (RFC 2104) and HKDF (RFC 5869)
// on top of this module's own internal/sha256, never crypto/sha256 or
// crypto/hmac — the wire protocol's key schedule must be reproducible from
// this package's arithmetic alone.
package hmachkdf

import (
	"errors"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/sha256"
)

const (
	blockSize = 64
	hashSize  = sha256.Size
)

// ErrOutputTooLong is returned by Expand when the requested length exceeds
// HKDF's 255*HashLen ceiling.
var ErrOutputTooLong = errors.New("hmachkdf: requested output exceeds 255*HashLen")

func normalizeKey(key []byte) [blockSize]byte {
	var padded [blockSize]byte
	if len(key) > blockSize {
		digest := sha256.Sum256(key)
		copy(padded[:], digest[:])
	} else {
		copy(padded[:], key)
	}
	return padded
}

// Sum computes HMAC-SHA256(key, data).
func Sum(key, data []byte) [hashSize]byte {
	normalized := normalizeKey(key)

	var iKeyPad, oKeyPad [blockSize]byte
	for i := range normalized {
		iKeyPad[i] = normalized[i] ^ 0x36
		oKeyPad[i] = normalized[i] ^ 0x5c
	}

	inner := sha256.Sum256(append(iKeyPad[:], data...))
	return sha256.Sum256(append(oKeyPad[:], inner[:]...))
}

// extractSaltPad is the size of the default salt used by Extract when the
// caller passes nil. RFC 5869 specifies HashLen (32) zero bytes here;
// this implementation intentionally pads to the full HMAC block size
// (64) zero bytes instead, matching this protocol's key schedule.
const extractSaltPad = blockSize

// Extract implements HKDF-Extract(salt, ikm). A nil salt is replaced with
// extractSaltPad zero bytes.
func Extract(salt, ikm []byte) [hashSize]byte {
	if salt == nil {
		salt = make([]byte, extractSaltPad)
	}
	return Sum(salt, ikm)
}

// Expand implements HKDF-Expand(prk, info, length).
func Expand(prk [hashSize]byte, info []byte, length int) ([]byte, error) {
	if length > 255*hashSize {
		return nil, ErrOutputTooLong
	}

	okm := make([]byte, 0, length+hashSize)
	var t []byte
	for counter := byte(1); len(okm) < length; counter++ {
		block := append(append([]byte{}, t...), info...)
		block = append(block, counter)
		sum := Sum(prk[:], block)
		t = sum[:]
		okm = append(okm, t...)
	}
	return okm[:length], nil
}
