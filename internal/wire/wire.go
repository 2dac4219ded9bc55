// wire.go - handshake wire codec
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package wire encodes and decodes the handshake's JSON wire message. The
// handshake is bandwidth-insignificant, so this layer trades compactness
// for debuggability; the record layer (package tunnel) uses compact
// binary framing instead.
package wire

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/dh"
)

// PubHexLen, NonceHexLen, and MACHexLen are the fixed hex-string lengths
// required of the corresponding wire fields.
const (
	PubHexLen   = dh.Size * 2
	NonceHexLen = 12 * 2
	MACHexLen   = 32 * 2
)

// ErrMalformed is returned when a decoded message has a field of the
// wrong length or an unrecognized role.
var ErrMalformed = errors.New("wire: malformed handshake message")

// Message is the on-wire JSON representation of a ClientHello or
// ServerHello.
type Message struct {
	Role  string `json:"role"`
	Pub   string `json:"pub"`
	Nonce string `json:"nonce"`
	MAC   string `json:"mac"`
}

// Encode builds the wire Message for the given role, public value, nonce,
// and MAC, and marshals it to JSON.
func Encode(role string, pub [dh.Size]byte, nonce [12]byte, mac [32]byte) ([]byte, error) {
	msg := Message{
		Role:  role,
		Pub:   hex.EncodeToString(pub[:]),
		Nonce: hex.EncodeToString(nonce[:]),
		MAC:   hex.EncodeToString(mac[:]),
	}
	return json.Marshal(msg)
}

// Decode parses and validates a wire Message, returning its fixed-size
// fields.
func Decode(blob []byte) (role string, pub [dh.Size]byte, nonce [12]byte, mac [32]byte, err error) {
	var msg Message
	if err = json.Unmarshal(blob, &msg); err != nil {
		return "", pub, nonce, mac, fmt.Errorf("wire: decode json: %w", err)
	}

	if msg.Role != "client" && msg.Role != "server" {
		return "", pub, nonce, mac, fmt.Errorf("%w: role %q", ErrMalformed, msg.Role)
	}
	if len(msg.Pub) != PubHexLen {
		return "", pub, nonce, mac, fmt.Errorf("%w: pub length %d", ErrMalformed, len(msg.Pub))
	}
	if len(msg.Nonce) != NonceHexLen {
		return "", pub, nonce, mac, fmt.Errorf("%w: nonce length %d", ErrMalformed, len(msg.Nonce))
	}
	if len(msg.MAC) != MACHexLen {
		return "", pub, nonce, mac, fmt.Errorf("%w: mac length %d", ErrMalformed, len(msg.MAC))
	}

	pubBytes, err := hex.DecodeString(msg.Pub)
	if err != nil {
		return "", pub, nonce, mac, fmt.Errorf("%w: pub not hex: %v", ErrMalformed, err)
	}
	nonceBytes, err := hex.DecodeString(msg.Nonce)
	if err != nil {
		return "", pub, nonce, mac, fmt.Errorf("%w: nonce not hex: %v", ErrMalformed, err)
	}
	macBytes, err := hex.DecodeString(msg.MAC)
	if err != nil {
		return "", pub, nonce, mac, fmt.Errorf("%w: mac not hex: %v", ErrMalformed, err)
	}

	copy(pub[:], pubBytes)
	copy(nonce[:], nonceBytes)
	copy(mac[:], macBytes)
	return msg.Role, pub, nonce, mac, nil
}
