// wstransport_test.go - WebSocket transport loopback tests
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package wstransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialUpgradeRoundTrip(t *testing.T) {
	serverConnCh := make(chan *Conn, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/tunnel", func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		require.NoError(t, err)
		serverConnCh <- c
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/tunnel"
	client, err := Dial(wsURL)
	require.NoError(t, err)
	defer client.Close()

	server := <-serverConnCh
	defer server.Close()

	ctx := context.Background()
	require.NoError(t, client.Send(ctx, []byte("hello")))
	got, err := server.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	require.NoError(t, server.Send(ctx, []byte("world")))
	got, err = client.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), got)
}
