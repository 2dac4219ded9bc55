// chacha20.go - RFC 7539/8439 ChaCha20
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package chacha20 implements the RFC 7539 / RFC 8439 ChaCha20 stream
// cipher from the block function up. It never delegates to
// golang.org/x/crypto/chacha20 — the tunnel's confidentiality guarantee
// rests entirely on this file's own arithmetic.
package chacha20

import (
	"encoding/binary"
	"errors"
)

// KeySize is the required ChaCha20 key length in bytes.
const KeySize = 32

// NonceSize is the required ChaCha20 nonce length in bytes (RFC 7539
// variant, 96-bit nonce / 32-bit counter).
const NonceSize = 12

const blockSize = 64
const rounds = 20

// ErrInvalidArgument is returned when a key or nonce has the wrong length.
var ErrInvalidArgument = errors.New("chacha20: invalid key or nonce size")

var constants = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574} // "expand 32-byte k"

func rotl(x uint32, n uint) uint32 {
	return (x << n) | (x >> (32 - n))
}

func quarterRound(state *[16]uint32, a, b, c, d int) {
	state[a] += state[b]
	state[d] ^= state[a]
	state[d] = rotl(state[d], 16)

	state[c] += state[d]
	state[b] ^= state[c]
	state[b] = rotl(state[b], 12)

	state[a] += state[b]
	state[d] ^= state[a]
	state[d] = rotl(state[d], 8)

	state[c] += state[d]
	state[b] ^= state[c]
	state[b] = rotl(state[b], 7)
}

// block computes one 64-byte ChaCha20 keystream block for the given key,
// 12-byte nonce, and 32-bit block counter.
func block(key [KeySize]byte, nonce [NonceSize]byte, counter uint32) [blockSize]byte {
	var state [16]uint32
	state[0], state[1], state[2], state[3] = constants[0], constants[1], constants[2], constants[3]
	for i := 0; i < 8; i++ {
		state[4+i] = binary.LittleEndian.Uint32(key[i*4:])
	}
	state[12] = counter
	for i := 0; i < 3; i++ {
		state[13+i] = binary.LittleEndian.Uint32(nonce[i*4:])
	}

	working := state
	for i := 0; i < rounds/2; i++ {
		quarterRound(&working, 0, 4, 8, 12)
		quarterRound(&working, 1, 5, 9, 13)
		quarterRound(&working, 2, 6, 10, 14)
		quarterRound(&working, 3, 7, 11, 15)
		quarterRound(&working, 0, 5, 10, 15)
		quarterRound(&working, 1, 6, 11, 12)
		quarterRound(&working, 2, 7, 8, 13)
		quarterRound(&working, 3, 4, 9, 14)
	}

	var out [blockSize]byte
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], working[i]+state[i])
	}
	return out
}

// XOR encrypts (or decrypts; the operation is symmetric) in, writing the
// result to out, using the keystream generated starting at
// initialCounter. len(out) must be >= len(in).
func XOR(key, nonce []byte, initialCounter uint32, out, in []byte) error {
	if len(key) != KeySize || len(nonce) != NonceSize {
		return ErrInvalidArgument
	}
	var k [KeySize]byte
	var n [NonceSize]byte
	copy(k[:], key)
	copy(n[:], nonce)

	counter := initialCounter
	for off := 0; off < len(in); off += blockSize {
		ks := block(k, n, counter)
		end := off + blockSize
		if end > len(in) {
			end = len(in)
		}
		for i := off; i < end; i++ {
			out[i] = in[i] ^ ks[i-off]
		}
		counter++
	}
	return nil
}
