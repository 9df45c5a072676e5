//go:build unix

package sockopt

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Broadcast is a net.ListenConfig and net.Dialer Control function that sets
// SO_BROADCAST on the socket.
func Broadcast(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// CanBindPrivileged reports whether the process runs as root. Without root,
// ports below 1024 need CAP_NET_BIND_SERVICE.
func CanBindPrivileged() bool {
	return unix.Geteuid() == 0
}
