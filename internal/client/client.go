// Package client implements the wolhook wake sender.
//
// It builds a standard magic packet for a MAC address and sends it as UDP
// datagrams, by default to the limited broadcast address on port 9. It is
// used to test a listener and to wake machines from scripts.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/merlos/wolhook/internal/sockopt"
	"github.com/merlos/wolhook/pkg/protocol"
)

const (
	// DefaultHost is the limited broadcast address.
	DefaultHost = "255.255.255.255"

	// DefaultPort is the discard port, the usual wake-on-LAN destination.
	DefaultPort uint16 = 9
)

// WakeOptions holds the parameters for sending magic packets.
type WakeOptions struct {
	// MAC is the hardware address to wake.
	MAC protocol.MAC

	// Host is the destination hostname or IP. Defaults to DefaultHost.
	Host string

	// Port is the destination UDP port. Zero means DefaultPort.
	Port uint16

	// Count is how many copies of the packet to send. Defaults to 1.
	Count int
}

// Wake builds a magic packet for opts.MAC and sends it opts.Count times.
func Wake(ctx context.Context, opts *WakeOptions) error {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	count := opts.Count
	if count <= 0 {
		count = 1
	}

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	d := net.Dialer{Control: sockopt.Broadcast}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("dialing UDP %s: %w", addr, err)
	}
	defer conn.Close()

	pkt := BuildPacket(opts.MAC)
	for i := 0; i < count; i++ {
		if _, err := conn.Write(pkt); err != nil {
			return fmt.Errorf("sending magic packet to %s: %w", addr, err)
		}
	}
	return nil
}

// BuildPacket returns the raw magic packet bytes for mac without sending them.
//
// Packet layout:
//
//	[0xFF × 6] [mac(6) × 16]
//
// Total: 102 bytes.
func BuildPacket(mac protocol.MAC) []byte {
	return protocol.MarshalMagicPacket(mac)
}
