// tuntransport.go - TUN device transport
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package tuntransport wraps a TUN network device as a tunnel.Transport,
// so this module can carry IP packets end to end instead of an
// already-framed file stream. Each Read from the device returns exactly
// one IP packet, which is exactly the per-record framing tunnel.State
// expects of a Transport.
package tuntransport

import (
	"context"
	"fmt"

	"github.com/songgao/water"
)

// mtu bounds a single read from the device. 1500 covers the common
// Ethernet-derived default; callers carrying jumbo frames should raise
// it and configure the device to match.
const mtu = 1500

// Device wraps a TUN interface as a tunnel.Transport. Send and Recv
// ignore ctx cancellation mid-syscall: the underlying os.File does not
// expose a cancelable read, so callers that need prompt shutdown should
// Close the Device from another goroutine to unblock a pending Recv.
type Device struct {
	iface *water.Interface
}

// Open creates (or attaches to, if name already exists) a TUN device.
// An empty name lets the OS assign one.
func Open(name string) (*Device, error) {
	cfg := water.Config{DeviceType: water.TUN}
	if name != "" {
		cfg.Name = name
	}
	iface, err := water.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("tuntransport: open: %w", err)
	}
	return &Device{iface: iface}, nil
}

// Name returns the OS-assigned or requested device name.
func (d *Device) Name() string {
	return d.iface.Name()
}

// Send writes one IP packet to the device.
func (d *Device) Send(ctx context.Context, b []byte) error {
	_, err := d.iface.Write(b)
	if err != nil {
		return fmt.Errorf("tuntransport: write: %w", err)
	}
	return nil
}

// Recv reads the next IP packet from the device.
func (d *Device) Recv(ctx context.Context) ([]byte, error) {
	buf := make([]byte, mtu)
	n, err := d.iface.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("tuntransport: read: %w", err)
	}
	return buf[:n], nil
}

// Close releases the device.
func (d *Device) Close() error {
	return d.iface.Close()
}
