// handshake_test.go - handshake protocol tests
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package handshake

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/dh"
)

func deterministicParticipant(t *testing.T, psk []byte, priv int64, nonceByte byte) *Participant {
	t.Helper()
	kp := dh.FromPrivate(big.NewInt(priv))
	var nonce [NonceSize]byte
	for i := range nonce {
		nonce[i] = nonceByte
	}
	return NewParticipantFromPrivate(psk, kp, nonce)
}

func TestHonestHandshakeDerivesIdenticalKeys(t *testing.T) {
	psk := []byte("unit-test-pre-shared-key")

	client := NewClient(deterministicParticipant(t, psk, 0x12345, 0x01))
	server := NewServer(deterministicParticipant(t, psk, 0xabcdef, 0x02))

	hello, err := client.BuildHello()
	require.NoError(t, err)

	reply, serverKeys, err := server.ProcessClientHello(hello)
	require.NoError(t, err)

	clientKeys, err := client.ProcessServerHello(reply)
	require.NoError(t, err)

	require.Equal(t, serverKeys.ClientEnc, clientKeys.ClientEnc)
	require.Equal(t, serverKeys.ServerEnc, clientKeys.ServerEnc)
	require.Equal(t, serverKeys.ClientMAC, clientKeys.ClientMAC)
	require.Equal(t, serverKeys.ServerMAC, clientKeys.ServerMAC)
	require.Equal(t, serverKeys.BaseNonce, clientKeys.BaseNonce)

	require.Len(t, clientKeys.ClientEnc, 32)
	require.Len(t, clientKeys.ServerEnc, 32)
	require.NotEqual(t, clientKeys.ClientEnc, clientKeys.ServerEnc)
}

func TestWrongPSKRejectsClientHello(t *testing.T) {
	client := NewClient(deterministicParticipant(t, []byte("unit-test-pre-shared-key"), 0x12345, 0x01))
	server := NewServer(deterministicParticipant(t, []byte("a-different-psk-entirely"), 0xabcdef, 0x02))

	hello, err := client.BuildHello()
	require.NoError(t, err)

	_, _, err = server.ProcessClientHello(hello)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestTamperedServerHelloRejected(t *testing.T) {
	psk := []byte("unit-test-pre-shared-key")
	client := NewClient(deterministicParticipant(t, psk, 0x12345, 0x01))
	server := NewServer(deterministicParticipant(t, psk, 0xabcdef, 0x02))

	hello, err := client.BuildHello()
	require.NoError(t, err)
	reply, _, err := server.ProcessClientHello(hello)
	require.NoError(t, err)

	tampered := make([]byte, len(reply))
	copy(tampered, reply)
	tampered[len(tampered)-2] ^= 0xff

	_, err = client.ProcessServerHello(tampered)
	require.Error(t, err)
}

func TestDestroyZeroesParticipantPrivateKey(t *testing.T) {
	p := deterministicParticipant(t, []byte("psk"), 0xdeadbeef, 0x03)
	p.Destroy()
	require.Equal(t, 0, p.kp.Priv.Cmp(big.NewInt(0)))
}
