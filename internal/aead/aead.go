// aead.go - AEAD_CHACHA20_POLY1305
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package aead implements AEAD_CHACHA20_POLY1305 (RFC 7539 / 8439) on top
// of this module's own internal/chacha20 and internal/poly1305 — never
// golang.org/x/crypto/chacha20poly1305. Combining the two primitives here,
// rather than importing a combined-mode package, keeps the whole
// confidentiality+integrity chain auditable end to end.
package aead

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/chacha20"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/poly1305"
)

// KeySize is the required AEAD key length in bytes.
const KeySize = chacha20.KeySize

// NonceSize is the required AEAD nonce length in bytes.
const NonceSize = chacha20.NonceSize

// TagSize is the AEAD authentication tag length in bytes.
const TagSize = poly1305.TagSize

// ErrInvalidArgument is returned for malformed key/nonce lengths.
var ErrInvalidArgument = errors.New("aead: invalid key or nonce size")

// ErrAuthenticationFailed is returned by Open when the tag does not match.
var ErrAuthenticationFailed = errors.New("aead: authentication failed")

func pad16(n int) int {
	return (16 - n%16) % 16
}

func macInput(aad, ciphertext []byte) []byte {
	out := make([]byte, 0, len(aad)+pad16(len(aad))+len(ciphertext)+pad16(len(ciphertext))+16)
	out = append(out, aad...)
	out = append(out, make([]byte, pad16(len(aad)))...)
	out = append(out, ciphertext...)
	out = append(out, make([]byte, pad16(len(ciphertext)))...)

	var lens [16]byte
	binary.LittleEndian.PutUint64(lens[0:8], uint64(len(aad)))
	binary.LittleEndian.PutUint64(lens[8:16], uint64(len(ciphertext)))
	return append(out, lens[:]...)
}

func polyKey(key, nonce []byte) ([poly1305.KeySize]byte, error) {
	var pk [poly1305.KeySize]byte
	zeros := make([]byte, 64)
	out := make([]byte, 64)
	if err := chacha20.XOR(key, nonce, 0, out, zeros); err != nil {
		return pk, ErrInvalidArgument
	}
	copy(pk[:], out[:poly1305.KeySize])
	return pk, nil
}

// Seal encrypts plaintext and authenticates it together with aad, returning
// (ciphertext, tag).
func Seal(key, nonce, plaintext, aad []byte) ([]byte, [TagSize]byte, error) {
	var tag [TagSize]byte
	if len(key) != KeySize || len(nonce) != NonceSize {
		return nil, tag, ErrInvalidArgument
	}

	pk, err := polyKey(key, nonce)
	if err != nil {
		return nil, tag, err
	}

	ciphertext := make([]byte, len(plaintext))
	if err := chacha20.XOR(key, nonce, 1, ciphertext, plaintext); err != nil {
		return nil, tag, err
	}

	tag, err = poly1305.Sum(pk[:], macInput(aad, ciphertext))
	if err != nil {
		return nil, tag, err
	}
	return ciphertext, tag, nil
}

// Open authenticates ciphertext/aad against tag and, on success, decrypts
// ciphertext. It returns ErrAuthenticationFailed without producing
// plaintext on any mismatch.
func Open(key, nonce, ciphertext, aad []byte, tag [TagSize]byte) ([]byte, error) {
	if len(key) != KeySize || len(nonce) != NonceSize {
		return nil, ErrInvalidArgument
	}

	pk, err := polyKey(key, nonce)
	if err != nil {
		return nil, err
	}

	expected, err := poly1305.Sum(pk[:], macInput(aad, ciphertext))
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(expected[:], tag[:]) != 1 {
		return nil, ErrAuthenticationFailed
	}

	plaintext := make([]byte, len(ciphertext))
	if err := chacha20.XOR(key, nonce, 1, plaintext, ciphertext); err != nil {
		return nil, err
	}
	return plaintext, nil
}
