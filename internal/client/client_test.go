package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlos/wolhook/internal/client"
	"github.com/merlos/wolhook/pkg/protocol"
)

var testMAC = protocol.MustParseMAC("52:54:00:12:34:56")

func TestBuildPacket(t *testing.T) {
	pkt := client.BuildPacket(testMAC)
	require.Len(t, pkt, protocol.PacketSize)

	got, err := protocol.ParseMagicPacket(pkt)
	require.NoError(t, err)
	assert.Equal(t, testMAC, got)
}

// listen opens a loopback UDP socket and returns it with its port.
func listen(t *testing.T) (net.PacketConn, uint16) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, uint16(conn.LocalAddr().(*net.UDPAddr).Port)
}

func TestWake(t *testing.T) {
	conn, port := listen(t)

	err := client.Wake(context.Background(), &client.WakeOptions{
		MAC:   testMAC,
		Host:  "127.0.0.1",
		Port:  port,
		Count: 3,
	})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	for i := 0; i < 3; i++ {
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err, "packet %d", i)
		assert.Equal(t, client.BuildPacket(testMAC), buf[:n])
	}
}

func TestWake_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Wake(ctx, &client.WakeOptions{MAC: testMAC, Host: "127.0.0.1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
