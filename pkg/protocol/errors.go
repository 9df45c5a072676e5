package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMAC is matched by every *ParseError produced by ParseMAC.
	ErrInvalidMAC = errors.New("invalid MAC address")

	// ErrInvalidMagicPacket is matched by every *ParseError produced by ParseMagicPacket.
	ErrInvalidMagicPacket = errors.New("could not parse magic packet")

	// ErrInvalidPacketSize is matched by *LengthError.
	ErrInvalidPacketSize = errors.New("invalid packet size")

	// ErrBind is matched by *BindError.
	ErrBind = errors.New("could not bind wake-on-LAN port")

	// ErrIO is matched by *IOError.
	ErrIO = errors.New("i/o error")
)

// LengthError is returned when a buffer cannot be a magic packet because of
// its size. The grammar is never run on such a buffer.
type LengthError struct {
	// Length is the observed buffer length in bytes.
	Length int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("invalid packet length (%d); wake-on-LAN magic packets should be %d bytes",
		e.Length, PacketSize)
}

func (e *LengthError) Unwrap() error { return ErrInvalidPacketSize }

// BindError is returned when a listening port cannot be bound.
type BindError struct {
	Port uint16
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("could not bind to wake-on-LAN port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

func (e *BindError) Is(target error) bool { return target == ErrBind }

// IOError reports an I/O failure while the listener is running, such as a
// socket read error.
type IOError struct {
	// Op names the operation that failed, e.g. "read udp :9".
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
