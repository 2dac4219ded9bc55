// udptransport.go - UDP socket transport
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package udptransport implements tunnel.Transport over a real UDP
// socket: the protocol this module implements was designed for exactly
// this transport's semantics (one sendto is one recvfrom, no stream
// reassembly). Dial connects to a fixed peer for the client role; Listen
// accepts the first datagram from any peer and locks onto its address
// for the server role, mirroring the connect-after-handshake pattern the
// original client/server applications use.
package udptransport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// maxDatagram bounds a single read. Records larger than this are an
// implementation error on the sender's part, not a wire condition this
// transport needs to recover from.
const maxDatagram = 65507

// ErrNotConnected is returned by Send/Recv before a peer address has
// been established (Listen's first packet, or Dial).
var ErrNotConnected = errors.New("udptransport: no peer address established")

// Conn wraps a UDP socket bound to (or connected to) exactly one peer.
type Conn struct {
	pc   net.PacketConn
	peer net.Addr
}

// Dial opens a UDP socket and fixes remoteAddr as its only peer, for the
// client role.
func Dial(remoteAddr string) (*Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("udptransport: resolve %q: %w", remoteAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("udptransport: dial: %w", err)
	}
	return &Conn{pc: conn, peer: raddr}, nil
}

// Listen binds localAddr and blocks until the first datagram arrives,
// fixing its sender as the only peer, for the server role. The first
// datagram's payload is returned so a caller can feed it straight into
// the handshake without a redundant Recv.
func Listen(ctx context.Context, localAddr string) (conn *Conn, firstPacket []byte, err error) {
	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("udptransport: resolve %q: %w", localAddr, err)
	}
	pc, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, nil, fmt.Errorf("udptransport: listen: %w", err)
	}

	buf := make([]byte, maxDatagram)
	if deadline, ok := ctx.Deadline(); ok {
		_ = pc.SetReadDeadline(deadline)
	}
	n, addr, err := pc.ReadFrom(buf)
	if err != nil {
		pc.Close()
		return nil, nil, fmt.Errorf("udptransport: initial read: %w", err)
	}

	c := &Conn{pc: pc, peer: addr}
	return c, buf[:n], nil
}

// Send writes b as a single datagram to the established peer.
func (c *Conn) Send(ctx context.Context, b []byte) error {
	if c.peer == nil {
		return ErrNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.pc.SetWriteDeadline(deadline)
	}
	var err error
	if uc, ok := c.pc.(*net.UDPConn); ok && uc.RemoteAddr() != nil {
		// A Dial-side socket is connected, and Go rejects WriteTo on it.
		_, err = uc.Write(b)
	} else {
		_, err = c.pc.WriteTo(b, c.peer)
	}
	if err != nil {
		return fmt.Errorf("udptransport: write: %w", err)
	}
	return nil
}

// Recv reads the next datagram that arrives on the socket. A Dial-side
// Conn only receives from its peer because its socket is connected; a
// Listen-side Conn does not check the sender against the established
// peer.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	if c.peer == nil {
		return nil, ErrNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.pc.SetReadDeadline(deadline)
	}
	buf := make([]byte, maxDatagram)
	n, _, err := c.pc.ReadFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("udptransport: read: %w", err)
	}
	return buf[:n], nil
}

// Close releases the underlying socket.
func (c *Conn) Close() error {
	return c.pc.Close()
}
