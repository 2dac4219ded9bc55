// memtransport.go - in-memory duplex transport
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package memtransport implements an in-memory duplex tunnel.Transport
// pair, for tests and single-process demos that don't want a real
// socket. Each endpoint's Recv returns exactly one record, matching the
// datagram semantics tunnel.State assumes of any transport.
package memtransport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send or Recv on a closed endpoint.
var ErrClosed = errors.New("memtransport: endpoint closed")

// Endpoint is one side of an in-memory duplex pair.
type Endpoint struct {
	out    chan []byte
	in     chan []byte
	closed chan struct{}
}

// Pair creates two connected Endpoints; records sent on one arrive,
// unmodified and in order, on the other's Recv.
func Pair() (a, b *Endpoint) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	closed := make(chan struct{})
	a = &Endpoint{out: ab, in: ba, closed: closed}
	b = &Endpoint{out: ba, in: ab, closed: closed}
	return a, b
}

// Send copies b and enqueues it for the peer's Recv.
func (e *Endpoint) Send(ctx context.Context, b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case e.out <- cp:
		return nil
	case <-e.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a record is available, the context is canceled, or
// the pair is closed.
func (e *Endpoint) Recv(ctx context.Context) ([]byte, error) {
	select {
	case b := <-e.in:
		return b, nil
	case <-e.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close signals both endpoints of the pair. Call it once, from either
// side; a second call panics like closing any Go channel twice.
func (e *Endpoint) Close() error {
	close(e.closed)
	return nil
}
