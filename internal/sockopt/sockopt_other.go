//go:build !unix

package sockopt

import "syscall"

// Broadcast is a no-op Control function on platforms without SO_BROADCAST
// handling here.
func Broadcast(network, address string, c syscall.RawConn) error { return nil }

// CanBindPrivileged always reports true; there is no privileged port range
// to warn about.
func CanBindPrivileged() bool { return true }
