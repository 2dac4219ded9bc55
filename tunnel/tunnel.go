// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package tunnel implements the record layer: per-direction sequence
// numbers, nonce derivation from a session's base nonce, a strict replay
// guard, and compact binary framing over an abstract Transport. State
// owns exactly one session's key material and counters.
package tunnel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Eduardo-Saenz/CryptoTunnel/internal/aead"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/metrics"
)

// SeqSize is the width, in bytes, of the big-endian sequence field
// prefixing every wire record.
const SeqSize = 8

// minFrameSize is the smallest legal record: an 8-byte sequence number
// plus a 16-byte AEAD tag wrapping a zero-length payload.
const minFrameSize = SeqSize + aead.TagSize

// Sentinel errors surfaced by Send/Receive.
var (
	ErrReplay             = errors.New("tunnel: replayed or out-of-order sequence number")
	ErrShortRead          = errors.New("tunnel: record shorter than the minimum frame size")
	ErrSequenceExhausted  = errors.New("tunnel: send sequence number space exhausted")
	ErrAuthenticationFailed = aead.ErrAuthenticationFailed
)

// Transport is the byte-oriented bidirectional channel a State sends
// records over and receives records from. Implementations are expected
// to have datagram semantics: one Recv call returns exactly one record
// written by one Send call on the peer.
type Transport interface {
	Send(ctx context.Context, b []byte) error
	Recv(ctx context.Context) ([]byte, error)
}

// SessionKeys is the per-direction key material a completed handshake
// produces and a State consumes. SendKey and RecvKey are assigned per role
// by the caller:
// a client uses (ClientEnc for send, ServerEnc for receive) and a server
// uses the mirror image.
type SessionKeys struct {
	SendKey   []byte
	RecvKey   []byte
	BaseNonce [12]byte
}

// State owns one session's encryption keys and the monotonically
// increasing sequence counters for each direction. It is not safe for
// concurrent use by multiple goroutines without external synchronization.
type State struct {
	keys     SessionKeys
	sendSeq  uint64
	recvSeq  uint64
	metrics  *metrics.Recorder

	// Log receives debug-level events for sent and received records. The
	// zero value is zerolog's disabled logger.
	Log zerolog.Logger
}

// New creates a State from completed handshake keys. Pass a non-nil
// recorder to export Prometheus counters for this session; pass nil to
// skip metrics entirely.
func New(keys SessionKeys, recorder *metrics.Recorder) *State {
	return &State{keys: keys, metrics: recorder, Log: zerolog.Nop()}
}

func (s *State) deriveNonce(seq uint64) [12]byte {
	var seqField [12]byte
	binary.BigEndian.PutUint64(seqField[4:], seq)
	var nonce [12]byte
	for i := range nonce {
		nonce[i] = s.keys.BaseNonce[i] ^ seqField[i]
	}
	return nonce
}

// Send encrypts payload under the current send sequence number,
// authenticates it together with aad, and writes the framed record to t.
//
// The sequence counter is committed before the transport write completes,
// matching the ordering invariant that a send failure still consumes a
// nonce: retransmitting the same payload after a failed Send uses a fresh
// sequence number rather than reusing one.
func (s *State) Send(ctx context.Context, t Transport, payload, aad []byte) error {
	if s.sendSeq == ^uint64(0) {
		return ErrSequenceExhausted
	}
	seq := s.sendSeq
	s.sendSeq++

	nonce := s.deriveNonce(seq)
	ciphertext, tag, err := aead.Seal(s.keys.SendKey, nonce[:], payload, aad)
	if err != nil {
		return fmt.Errorf("tunnel: seal: %w", err)
	}

	frame := make([]byte, 0, SeqSize+len(ciphertext)+aead.TagSize)
	var seqBytes [SeqSize]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	frame = append(frame, seqBytes[:]...)
	frame = append(frame, ciphertext...)
	frame = append(frame, tag[:]...)

	if err := t.Send(ctx, frame); err != nil {
		return fmt.Errorf("tunnel: transport send: %w", err)
	}

	s.metrics.RecordSent(len(payload))
	s.Log.Debug().Uint64("seq", seq).Int("len", len(payload)).Msg("tunnel: sent record")
	return nil
}

// Receive reads one framed record from t, verifies its sequence number
// against the replay guard, authenticates and decrypts it against aad,
// and returns the plaintext.
//
// The receive sequence counter — the replay high-water mark — is
// committed only after successful AEAD verification, so a rejected
// record never advances it.
func (s *State) Receive(ctx context.Context, t Transport, aad []byte) ([]byte, error) {
	frame, err := t.Recv(ctx)
	if err != nil {
		return nil, fmt.Errorf("tunnel: transport recv: %w", err)
	}
	if len(frame) < minFrameSize {
		s.metrics.ShortReadRejected()
		return nil, ErrShortRead
	}

	seq := binary.BigEndian.Uint64(frame[:SeqSize])
	if seq < s.recvSeq {
		s.metrics.ReplayRejected()
		return nil, ErrReplay
	}

	ciphertext := frame[SeqSize : len(frame)-aead.TagSize]
	var tag [aead.TagSize]byte
	copy(tag[:], frame[len(frame)-aead.TagSize:])

	nonce := s.deriveNonce(seq)
	plaintext, err := aead.Open(s.keys.RecvKey, nonce[:], ciphertext, aad, tag)
	if err != nil {
		s.metrics.AuthFailed()
		return nil, ErrAuthenticationFailed
	}

	s.recvSeq = seq + 1
	s.metrics.RecordReceived(len(plaintext))
	s.Log.Debug().Uint64("seq", seq).Int("len", len(plaintext)).Msg("tunnel: received record")
	return plaintext, nil
}

// Destroy scrubs this session's key material. Call it once the tunnel is
// torn down.
func (s *State) Destroy() {
	zero(s.keys.SendKey)
	zero(s.keys.RecvKey)
	for i := range s.keys.BaseNonce {
		s.keys.BaseNonce[i] = 0
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
