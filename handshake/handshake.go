// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package handshake implements the PSK-authenticated Diffie-Hellman
// handshake that bootstraps a tunnel.State: two messages, each MACed
// under the pre-shared key, exchange ephemeral DH public values and
// nonces, and both sides expand the shared secret into four directional
// keys via HKDF and hash both nonces with SHA-256 into a base nonce.
package handshake

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/dh"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/hmachkdf"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/sha256"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/wire"
)

// NonceSize is the width of each side's contributed handshake nonce.
const NonceSize = 12

// ErrAuthenticationFailed is returned when a peer's hello MAC does not
// match the PSK-keyed HMAC computed locally.
var ErrAuthenticationFailed = errors.New("handshake: peer authentication failed")

// Keys is the key material both parties derive from a completed
// handshake. ClientMAC and ServerMAC are reserved, HKDF-expanded outputs
// that this protocol version does not use: record authentication is
// provided entirely by the ChaCha20-Poly1305 tag, not a separate MAC key.
// They are kept so a future record format could add per-direction MAC
// keys without re-deriving from the transcript.
type Keys struct {
	ClientEnc []byte
	ServerEnc []byte
	ClientMAC []byte
	ServerMAC []byte
	BaseNonce [12]byte
}

// Participant holds one endpoint's long-term PSK and its ephemeral DH
// contribution for a single handshake. Construct one with NewParticipant
// (random) or NewParticipantFromPrivate (deterministic, for tests and
// fixtures), and Destroy it once the handshake is complete.
type Participant struct {
	psk   []byte
	kp    *dh.KeyPair
	nonce [NonceSize]byte

	// Log receives debug-level events for this participant's handshake.
	// The zero value is zerolog's disabled logger, so instrumentation is
	// opt-in.
	Log zerolog.Logger
}

// NewParticipant creates a Participant with a freshly generated DH
// keypair and a random nonce.
func NewParticipant(psk []byte) (*Participant, error) {
	kp, err := dh.Generate()
	if err != nil {
		return nil, fmt.Errorf("handshake: generate keypair: %w", err)
	}
	var nonce [NonceSize]byte
	if err := randNonce(nonce[:]); err != nil {
		return nil, err
	}
	return &Participant{psk: psk, kp: kp, nonce: nonce, Log: zerolog.Nop()}, nil
}

// NewParticipantFromPrivate rebuilds a Participant from an explicit
// private exponent and nonce, for known-answer tests.
func NewParticipantFromPrivate(psk []byte, priv *dh.KeyPair, nonce [NonceSize]byte) *Participant {
	return &Participant{psk: psk, kp: priv, nonce: nonce, Log: zerolog.Nop()}
}

// Destroy zeroes this participant's private exponent. Call it once the
// handshake has produced session Keys; the keypair is not needed again.
func (p *Participant) Destroy() {
	p.kp.Destroy()
}

func transcriptMAC(psk []byte, role string, pub [dh.Size]byte, nonce [NonceSize]byte) []byte {
	msg := make([]byte, 0, len(role)+dh.Size+NonceSize)
	msg = append(msg, role...)
	msg = append(msg, pub[:]...)
	msg = append(msg, nonce[:]...)
	mac := hmachkdf.Sum(psk, msg)
	return mac[:]
}

func deriveKeys(psk, shared []byte, nonces []byte) (Keys, error) {
	prk := hmachkdf.Extract(psk, shared)
	okm, err := hmachkdf.Expand(prk, nonces, 128)
	if err != nil {
		return Keys{}, fmt.Errorf("handshake: hkdf expand: %w", err)
	}
	baseNonceFull := sha256.Sum256(nonces)
	var keys Keys
	keys.ClientEnc = append([]byte(nil), okm[0:32]...)
	keys.ServerEnc = append([]byte(nil), okm[32:64]...)
	keys.ClientMAC = append([]byte(nil), okm[64:96]...)
	keys.ServerMAC = append([]byte(nil), okm[96:128]...)
	copy(keys.BaseNonce[:], baseNonceFull[:12])
	return keys, nil
}

// Client runs the client side of a handshake: build a ClientHello, then
// validate the peer's ServerHello and derive session Keys from it.
type Client struct {
	*Participant
}

// NewClient wraps a Participant as the handshake's initiating role.
func NewClient(p *Participant) *Client {
	return &Client{Participant: p}
}

// BuildHello produces the wire-encoded ClientHello to send to the server.
func (c *Client) BuildHello() ([]byte, error) {
	pub := dh.PubBytes(c.kp.Pub)
	mac := transcriptMAC(c.psk, "client", pub, c.nonce)
	var macArr [32]byte
	copy(macArr[:], mac)
	return wire.Encode("client", pub, c.nonce, macArr)
}

// ProcessServerHello validates serverMsg's MAC under the PSK, computes
// the shared secret, and derives the four-key/base-nonce bundle that
// seeds a tunnel.State.
func (c *Client) ProcessServerHello(serverMsg []byte) (Keys, error) {
	role, pub, nonce, mac, err := wire.Decode(serverMsg)
	if err != nil {
		return Keys{}, fmt.Errorf("handshake: decode server hello: %w", err)
	}
	if role != "server" {
		return Keys{}, fmt.Errorf("%w: expected server role, got %q", ErrAuthenticationFailed, role)
	}
	expected := transcriptMAC(c.psk, "server", pub, nonce)
	if !constantTimeEqual(expected, mac[:]) {
		return Keys{}, ErrAuthenticationFailed
	}

	peerPub := dh.PubFromBytes(pub[:])
	shared := dh.Shared(peerPub, c.kp.Priv)
	nonces := make([]byte, 0, 2*NonceSize)
	nonces = append(nonces, c.nonce[:]...)
	nonces = append(nonces, nonce[:]...)

	keys, err := deriveKeys(c.psk, shared[:], nonces)
	if err != nil {
		return Keys{}, err
	}
	c.Log.Debug().Str("session_id", uuid.NewString()).Msg("handshake: client derived session keys")
	return keys, nil
}

// Server runs the server side of a handshake: validate a ClientHello,
// derive session Keys, and produce a ServerHello reply.
type Server struct {
	*Participant
}

// NewServer wraps a Participant as the handshake's responding role.
func NewServer(p *Participant) *Server {
	return &Server{Participant: p}
}

// ProcessClientHello validates clientMsg's MAC under the PSK, derives
// session Keys, and returns the wire-encoded ServerHello to send back.
func (s *Server) ProcessClientHello(clientMsg []byte) (reply []byte, keys Keys, err error) {
	role, pub, nonce, mac, err := wire.Decode(clientMsg)
	if err != nil {
		return nil, Keys{}, fmt.Errorf("handshake: decode client hello: %w", err)
	}
	if role != "client" {
		return nil, Keys{}, fmt.Errorf("%w: expected client role, got %q", ErrAuthenticationFailed, role)
	}
	expected := transcriptMAC(s.psk, "client", pub, nonce)
	if !constantTimeEqual(expected, mac[:]) {
		return nil, Keys{}, ErrAuthenticationFailed
	}

	peerPub := dh.PubFromBytes(pub[:])
	shared := dh.Shared(peerPub, s.kp.Priv)
	nonces := make([]byte, 0, 2*NonceSize)
	nonces = append(nonces, nonce[:]...)
	nonces = append(nonces, s.nonce[:]...)

	keys, err = deriveKeys(s.psk, shared[:], nonces)
	if err != nil {
		return nil, Keys{}, err
	}

	respPub := dh.PubBytes(s.kp.Pub)
	respMAC := transcriptMAC(s.psk, "server", respPub, s.nonce)
	var respMACArr [32]byte
	copy(respMACArr[:], respMAC)
	reply, err = wire.Encode("server", respPub, s.nonce, respMACArr)
	if err != nil {
		return nil, Keys{}, err
	}

	s.Log.Debug().Str("session_id", uuid.NewString()).Msg("handshake: server derived session keys")
	return reply, keys, nil
}
