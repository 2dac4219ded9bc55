// wstransport.go - WebSocket transport
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package wstransport implements tunnel.Transport over a WebSocket
// connection, for deployments that need to cross HTTP-only middleboxes
// that a raw UDP socket can't traverse. Each tunnel record is sent as one
// binary WebSocket message, preserving the one-send-is-one-recv framing
// the rest of this module assumes of a Transport.
package wstransport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader accepts connections from any origin; this transport is meant
// to carry an already-authenticated tunnel, not to gate access at the
// HTTP layer.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn wraps a *websocket.Conn as a tunnel.Transport.
type Conn struct {
	ws *websocket.Conn
}

// Dial opens a WebSocket connection to url, for the client role.
func Dial(url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("wstransport: dial %q: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Upgrade promotes an incoming HTTP request to a WebSocket connection,
// for the server role.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("wstransport: upgrade: %w", err)
	}
	return &Conn{ws: ws}, nil
}

// Send writes b as a single binary WebSocket message.
func (c *Conn) Send(ctx context.Context, b []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
	} else {
		_ = c.ws.SetWriteDeadline(time.Time{})
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("wstransport: write: %w", err)
	}
	return nil
}

// Recv reads the next binary WebSocket message.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
	} else {
		_ = c.ws.SetReadDeadline(time.Time{})
	}
	_, b, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("wstransport: read: %w", err)
	}
	return b, nil
}

// Close sends a close frame and closes the underlying connection.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
