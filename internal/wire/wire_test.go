// wire_test.go - wire codec tests
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package wire

import (
	"testing"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/dh"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var pub [dh.Size]byte
	pub[dh.Size-1] = 0x02
	var nonce [12]byte
	copy(nonce[:], []byte("abcdefghijkl"))
	var mac [32]byte
	for i := range mac {
		mac[i] = byte(i)
	}

	blob, err := Encode("client", pub, nonce, mac)
	require.NoError(t, err)

	role, gotPub, gotNonce, gotMAC, err := Decode(blob)
	require.NoError(t, err)
	require.Equal(t, "client", role)
	require.Equal(t, pub, gotPub)
	require.Equal(t, nonce, gotNonce)
	require.Equal(t, mac, gotMAC)
}

func TestDecodeRejectsBadRole(t *testing.T) {
	_, err := Encode("x", [dh.Size]byte{}, [12]byte{}, [32]byte{})
	require.NoError(t, err)

	blob := []byte(`{"role":"mallory","pub":"` + repeatHex(dh.Size) + `","nonce":"` + repeatHex(12) + `","mac":"` + repeatHex(32) + `"}`)
	_, _, _, _, err = Decode(blob)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsShortPub(t *testing.T) {
	blob := []byte(`{"role":"client","pub":"aabb","nonce":"` + repeatHex(12) + `","mac":"` + repeatHex(32) + `"}`)
	_, _, _, _, err := Decode(blob)
	require.ErrorIs(t, err, ErrMalformed)
}

func repeatHex(n int) string {
	out := make([]byte, n*2)
	for i := range out {
		out[i] = '0'
	}
	return string(out)
}
