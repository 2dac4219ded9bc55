// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Command tunnelc is the client half of the secure tunnel: it dials a
// server, performs the PSK-authenticated handshake, and streams a file
// (or a TUN device's packets) through the resulting encrypted session.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Eduardo-Saenz/CryptoTunnel/handshake"
	"github.com/Eduardo-Saenz/CryptoTunnel/internal/pskfile"
	"github.com/Eduardo-Saenz/CryptoTunnel/transport/tuntransport"
	"github.com/Eduardo-Saenz/CryptoTunnel/transport/udptransport"
	"github.com/Eduardo-Saenz/CryptoTunnel/transport/wstransport"
	"github.com/Eduardo-Saenz/CryptoTunnel/tunnel"
)

// chunkSize is the plaintext read size per record, not a wire limit.
const chunkSize = 2048

// endSentinel is sent as a final plaintext record to mark the end of a
// file transfer.
const endSentinel = "END"

var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "tunnelc",
		Short: "Secure tunnel client: handshake with a server and stream a file or device",
	}
	root.AddCommand(sendCmd())
	root.AddCommand(pskCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("tunnelc: fatal")
		os.Exit(1)
	}
}

func sendCmd() *cobra.Command {
	var (
		serverAddr string
		pskPath    string
		inputPath  string
		transport  string
		useTUN     bool
		tunDevice  string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Handshake with a server and send a file (or a TUN device's traffic)",
		RunE: func(cmd *cobra.Command, args []string) error {
			psk, err := loadOrPromptPSK(pskPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			installSignalCancel(cancel)

			sessionID := uuid.NewString()
			log.Info().Str("session_id", sessionID).Str("server", serverAddr).Msg("tunnelc: connecting")

			t, err := dialTransport(ctx, transport, serverAddr)
			if err != nil {
				return fmt.Errorf("tunnelc: dial: %w", err)
			}

			keys, err := clientHandshake(ctx, t, psk)
			if err != nil {
				return fmt.Errorf("tunnelc: handshake: %w", err)
			}
			log.Info().Str("session_id", sessionID).Msg("tunnelc: handshake complete")

			state := tunnel.New(keys, nil)
			defer state.Destroy()

			if useTUN {
				dev, err := tuntransport.Open(tunDevice)
				if err != nil {
					return fmt.Errorf("tunnelc: open tun: %w", err)
				}
				defer dev.Close()
				log.Info().Str("device", dev.Name()).Msg("tunnelc: forwarding TUN device")
				return forwardTUN(ctx, state, t, dev)
			}

			f, err := os.Open(inputPath)
			if err != nil {
				return fmt.Errorf("tunnelc: open input: %w", err)
			}
			defer f.Close()

			return sendFile(ctx, state, t, f)
		},
	}

	cmd.Flags().StringVarP(&serverAddr, "server", "s", "", "server address (host:port or ws URL)")
	cmd.Flags().StringVar(&pskPath, "psk-file", "", "path to the pre-shared key file (omit to be prompted)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path of the file to send")
	cmd.Flags().StringVarP(&transport, "transport", "T", "udp", "transport: udp or ws")
	cmd.Flags().BoolVar(&useTUN, "tun", false, "forward a local TUN device's packets instead of --input")
	cmd.Flags().StringVar(&tunDevice, "tun-name", "", "TUN device name (empty lets the OS choose)")
	_ = cmd.MarkFlagRequired("server")

	return cmd
}

// clientTransport is the minimal surface sendCmd needs from either
// transport implementation: tunnel.Transport plus Close.
type clientTransport interface {
	Send(ctx context.Context, b []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

func dialTransport(ctx context.Context, kind, addr string) (clientTransport, error) {
	switch kind {
	case "udp":
		return udptransport.Dial(addr)
	case "ws":
		return wstransport.Dial(addr)
	default:
		return nil, fmt.Errorf("tunnelc: unknown transport %q", kind)
	}
}

func clientHandshake(ctx context.Context, t clientTransport, psk []byte) (tunnel.SessionKeys, error) {
	p, err := handshake.NewParticipant(psk)
	if err != nil {
		return tunnel.SessionKeys{}, err
	}
	defer p.Destroy()

	client := handshake.NewClient(p)
	hello, err := client.BuildHello()
	if err != nil {
		return tunnel.SessionKeys{}, err
	}
	if err := t.Send(ctx, hello); err != nil {
		return tunnel.SessionKeys{}, fmt.Errorf("send client hello: %w", err)
	}

	reply, err := t.Recv(ctx)
	if err != nil {
		return tunnel.SessionKeys{}, fmt.Errorf("recv server hello: %w", err)
	}
	keys, err := client.ProcessServerHello(reply)
	if err != nil {
		return tunnel.SessionKeys{}, err
	}

	return tunnel.SessionKeys{
		SendKey:   keys.ClientEnc,
		RecvKey:   keys.ServerEnc,
		BaseNonce: keys.BaseNonce,
	}, nil
}

func sendFile(ctx context.Context, state *tunnel.State, t clientTransport, f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	buf := make([]byte, chunkSize)
	var sent int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if sendErr := state.Send(ctx, t, buf[:n], nil); sendErr != nil {
				return fmt.Errorf("tunnelc: send chunk: %w", sendErr)
			}
			sent += int64(n)
			log.Info().Str("progress", humanize.Bytes(uint64(sent))).
				Str("total", humanize.Bytes(uint64(info.Size()))).Msg("tunnelc: sending")
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tunnelc: read input: %w", err)
		}
	}

	if err := state.Send(ctx, t, []byte(endSentinel), nil); err != nil {
		return fmt.Errorf("tunnelc: send end sentinel: %w", err)
	}
	log.Info().Str("sent", humanize.Bytes(uint64(sent))).Msg("tunnelc: transfer complete")
	return nil
}

func forwardTUN(ctx context.Context, state *tunnel.State, t clientTransport, dev *tuntransport.Device) error {
	errCh := make(chan error, 2)

	go func() {
		for {
			pkt, err := dev.Recv(ctx)
			if err != nil {
				errCh <- fmt.Errorf("tunnelc: tun read: %w", err)
				return
			}
			if err := state.Send(ctx, t, pkt, nil); err != nil {
				errCh <- fmt.Errorf("tunnelc: send packet: %w", err)
				return
			}
		}
	}()

	go func() {
		for {
			pt, err := state.Receive(ctx, t, nil)
			if err != nil {
				errCh <- fmt.Errorf("tunnelc: receive packet: %w", err)
				return
			}
			if err := dev.Send(ctx, pt); err != nil {
				errCh <- fmt.Errorf("tunnelc: tun write: %w", err)
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

func pskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "psk",
		Short: "Pre-shared key utilities",
	}
	cmd.AddCommand(pskGenerateCmd())
	return cmd
}

func pskGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <path>",
		Short: "Generate a fresh random PSK and write it, hex-encoded, to <path>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pskfile.Generate(args[0]); err != nil {
				return err
			}
			fmt.Printf("tunnelc: wrote %d-byte PSK to %s\n", pskfile.GeneratedSize, args[0])
			return nil
		},
	}
}

// loadOrPromptPSK reads the PSK from pskPath, falling back to an
// interactive terminal prompt (no echo) when the caller didn't pass
// --psk-file.
func loadOrPromptPSK(pskPath string) ([]byte, error) {
	if pskPath != "" {
		return pskfile.Load(pskPath)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("tunnelc: --psk-file is required when stdin is not a terminal")
	}
	return pskfile.PromptTerminal(int(os.Stdin.Fd()), "PSK: ")
}

func installSignalCancel(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
}
