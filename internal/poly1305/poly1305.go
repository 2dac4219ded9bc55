// poly1305.go - RFC 7539 Poly1305
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package poly1305 implements the RFC 7539 one-time authenticator: clamp,
// accumulate mod 2^130-5, finalize mod 2^128. The accumulator arithmetic
// is carried out with math/big, the same choice this module's
// internal/dh package makes for its modular exponentiation, favoring a
// correct, directly-checkable bignum reduction over a hand-rolled
// fixed-width-limb implementation.
package poly1305

import (
	"errors"
	"math/big"
)

// KeySize is the required Poly1305 key length in bytes.
const KeySize = 32

// TagSize is the length of a Poly1305 tag in bytes.
const TagSize = 16

// ErrInvalidArgument is returned when the key is not KeySize bytes.
var ErrInvalidArgument = errors.New("poly1305: invalid key size")

var (
	p128 = new(big.Int).Lsh(big.NewInt(1), 128)
	p130 = func() *big.Int {
		v := new(big.Int).Lsh(big.NewInt(1), 130)
		return v.Sub(v, big.NewInt(5))
	}()
	clampMask = func() *big.Int {
		m, _ := new(big.Int).SetString("0ffffffc0ffffffc0ffffffc0fffffff", 16)
		return m
	}()
)

func leBytesToInt(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(rev)
}

func intToLEBytes(v *big.Int, size int) []byte {
	be := v.Bytes()
	out := make([]byte, size)
	for i, b := range be {
		out[size-1-i] = b
	}
	return out
}

// Sum computes the Poly1305 tag for msg under the given 32-byte key: the
// first 16 bytes form the clamped multiplier r, the last 16 bytes form the
// additive mask s.
func Sum(key []byte, msg []byte) ([TagSize]byte, error) {
	var tag [TagSize]byte
	if len(key) != KeySize {
		return tag, ErrInvalidArgument
	}

	r := new(big.Int).And(leBytesToInt(key[:16]), clampMask)
	s := leBytesToInt(key[16:])

	acc := new(big.Int)
	for off := 0; off < len(msg); off += 16 {
		end := off + 16
		if end > len(msg) {
			end = len(msg)
		}
		block := append(append([]byte{}, msg[off:end]...), 0x01)
		n := leBytesToInt(block)

		acc.Add(acc, n)
		acc.Mod(acc, p130)
		acc.Mul(acc, r)
		acc.Mod(acc, p130)
	}

	acc.Add(acc, s)
	acc.Mod(acc, p128)

	copy(tag[:], intToLEBytes(acc, TagSize))
	return tag, nil
}

// clampedR exposes the clamped r value for tests that want to check the
// masking independent of the full Sum pipeline.
func clampedR(key [16]byte) []byte {
	r := new(big.Int).And(leBytesToInt(key[:]), clampMask)
	return intToLEBytes(r, 16)
}
