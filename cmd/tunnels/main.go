// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Command tunnels is the server half of the secure tunnel: it listens
// for one peer, performs the PSK-authenticated handshake, and receives a
// file (or forwards packets to a TUN device) through the resulting
// encrypted session.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Eduardo-Saenz/CryptoTunnel/handshake"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/metrics"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/pskfile"
	"github.com/Eduardo-Saenz/CryptoTunnel/transport/tuntransport"
	"github.com/Eduardo-Saenz/CryptoTunnel/transport/udptransport"
	"github.com/Eduardo-Saenz/CryptoTunnel/transport/wstransport"
	"github.com/Eduardo-Saenz/CryptoTunnel/tunnel"
)

const endSentinel = "END"

var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "tunnels",
		Short: "Secure tunnel server: accept one peer and receive a file or device traffic",
	}
	root.AddCommand(recvCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("tunnels: fatal")
		os.Exit(1)
	}
}

func recvCmd() *cobra.Command {
	var (
		listenAddr  string
		pskPath     string
		outputPath  string
		transport   string
		metricsAddr string
		useTUN      bool
		tunDevice   string
	)

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Accept a handshake and receive a file (or forward to a TUN device)",
		RunE: func(cmd *cobra.Command, args []string) error {
			psk, err := pskfile.Load(pskPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			installSignalCancel(cancel)

			var recorder *metrics.Recorder
			if metricsAddr != "" {
				recorder, err = startMetricsServer(metricsAddr)
				if err != nil {
					return fmt.Errorf("tunnels: metrics server: %w", err)
				}
			}

			sessionID := uuid.NewString()
			log.Info().Str("session_id", sessionID).Str("listen", listenAddr).Msg("tunnels: listening")

			t, keys, err := acceptAndHandshake(ctx, transport, listenAddr, psk, recorder)
			if err != nil {
				recorder.HandshakeFailed()
				return fmt.Errorf("tunnels: handshake: %w", err)
			}
			recorder.HandshakeSucceeded()
			log.Info().Str("session_id", sessionID).Msg("tunnels: handshake complete")

			state := tunnel.New(keys, recorder)
			defer state.Destroy()

			if useTUN {
				dev, err := tuntransport.Open(tunDevice)
				if err != nil {
					return fmt.Errorf("tunnels: open tun: %w", err)
				}
				defer dev.Close()
				log.Info().Str("device", dev.Name()).Msg("tunnels: forwarding to TUN device")
				return forwardTUN(ctx, state, t, dev)
			}

			return receiveFile(ctx, state, t, outputPath)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "0.0.0.0:9443", "listen address (host:port or ws listen address)")
	cmd.Flags().StringVar(&pskPath, "psk-file", "", "path to the pre-shared key file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to write the received file")
	cmd.Flags().StringVarP(&transport, "transport", "T", "udp", "transport: udp or ws")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (empty disables)")
	cmd.Flags().BoolVar(&useTUN, "tun", false, "forward received packets to a local TUN device instead of --output")
	cmd.Flags().StringVar(&tunDevice, "tun-name", "", "TUN device name (empty lets the OS choose)")
	_ = cmd.MarkFlagRequired("psk-file")

	return cmd
}

type serverTransport interface {
	Send(ctx context.Context, b []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

func acceptAndHandshake(ctx context.Context, kind, addr string, psk []byte, recorder *metrics.Recorder) (serverTransport, tunnel.SessionKeys, error) {
	switch kind {
	case "udp":
		return acceptUDP(ctx, addr, psk)
	case "ws":
		return acceptWS(ctx, addr, psk)
	default:
		return nil, tunnel.SessionKeys{}, fmt.Errorf("tunnels: unknown transport %q", kind)
	}
}

func acceptUDP(ctx context.Context, addr string, psk []byte) (serverTransport, tunnel.SessionKeys, error) {
	conn, firstPacket, err := udptransport.Listen(ctx, addr)
	if err != nil {
		return nil, tunnel.SessionKeys{}, err
	}
	keys, err := serverHandshake(ctx, conn, psk, firstPacket)
	if err != nil {
		conn.Close()
		return nil, tunnel.SessionKeys{}, err
	}
	return conn, keys, nil
}

// acceptWS bridges gorilla/websocket's one-shot HTTP upgrade into the
// connect-then-handshake shape the UDP path uses.
func acceptWS(ctx context.Context, addr string, psk []byte) (serverTransport, tunnel.SessionKeys, error) {
	connCh := make(chan *wstransport.Conn, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/tunnel", func(w http.ResponseWriter, r *http.Request) {
		c, err := wstransport.Upgrade(w, r)
		if err != nil {
			errCh <- err
			return
		}
		connCh <- c
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()

	var conn *wstransport.Conn
	select {
	case conn = <-connCh:
	case err := <-errCh:
		return nil, tunnel.SessionKeys{}, err
	case <-ctx.Done():
		_ = srv.Close()
		return nil, tunnel.SessionKeys{}, ctx.Err()
	}
	_ = srv.Close()

	firstPacket, err := conn.Recv(ctx)
	if err != nil {
		conn.Close()
		return nil, tunnel.SessionKeys{}, err
	}
	keys, err := serverHandshake(ctx, conn, psk, firstPacket)
	if err != nil {
		conn.Close()
		return nil, tunnel.SessionKeys{}, err
	}
	return conn, keys, nil
}

func serverHandshake(ctx context.Context, t serverTransport, psk, clientHello []byte) (tunnel.SessionKeys, error) {
	p, err := handshake.NewParticipant(psk)
	if err != nil {
		return tunnel.SessionKeys{}, err
	}
	defer p.Destroy()

	server := handshake.NewServer(p)
	reply, keys, err := server.ProcessClientHello(clientHello)
	if err != nil {
		return tunnel.SessionKeys{}, err
	}
	if err := t.Send(ctx, reply); err != nil {
		return tunnel.SessionKeys{}, fmt.Errorf("send server hello: %w", err)
	}

	return tunnel.SessionKeys{
		SendKey:   keys.ServerEnc,
		RecvKey:   keys.ClientEnc,
		BaseNonce: keys.BaseNonce,
	}, nil
}

func receiveFile(ctx context.Context, state *tunnel.State, t serverTransport, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("tunnels: create output: %w", err)
	}
	defer f.Close()

	var received int64
	for {
		plaintext, err := state.Receive(ctx, t, nil)
		if err != nil {
			return fmt.Errorf("tunnels: receive: %w", err)
		}
		if string(plaintext) == endSentinel {
			break
		}
		n, err := f.Write(plaintext)
		if err != nil {
			return fmt.Errorf("tunnels: write output: %w", err)
		}
		received += int64(n)
	}
	log.Info().Int64("bytes", received).Str("output", outputPath).Msg("tunnels: transfer complete")
	return nil
}

func forwardTUN(ctx context.Context, state *tunnel.State, t serverTransport, dev *tuntransport.Device) error {
	errCh := make(chan error, 2)

	go func() {
		for {
			pt, err := state.Receive(ctx, t, nil)
			if err != nil {
				errCh <- fmt.Errorf("tunnels: receive packet: %w", err)
				return
			}
			if err := dev.Send(ctx, pt); err != nil {
				errCh <- fmt.Errorf("tunnels: tun write: %w", err)
				return
			}
		}
	}()

	go func() {
		for {
			pkt, err := dev.Recv(ctx)
			if err != nil {
				errCh <- fmt.Errorf("tunnels: tun read: %w", err)
				return
			}
			if err := state.Send(ctx, t, pkt, nil); err != nil {
				errCh <- fmt.Errorf("tunnels: send packet: %w", err)
				return
			}
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func startMetricsServer(addr string) (*metrics.Recorder, error) {
	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("tunnels: metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("tunnels: metrics exposed on /metrics")
	return recorder, nil
}

func installSignalCancel(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
}
