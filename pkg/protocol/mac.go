package protocol

import (
	"bytes"
	"fmt"
	"net"
)

// MACSize is the length of a hardware address in bytes.
const MACSize = 6

// MAC is a six-octet hardware address. Octet 0 is the most significant.
//
// MAC is a comparable value type: use == for equality and Compare for
// ordering. The zero value is 00:00:00:00:00:00.
type MAC [MACSize]byte

// MACFrom6 returns the MAC with the given octets.
func MACFrom6(b [MACSize]byte) MAC {
	return MAC(b)
}

// Bytes returns a copy of the octets.
func (m MAC) Bytes() [MACSize]byte {
	return m
}

// HardwareAddr returns m as a net.HardwareAddr.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, MACSize)
	copy(hw, m[:])
	return hw
}

// Compare orders addresses byte-wise, returning -1, 0 or 1.
func (m MAC) Compare(o MAC) int {
	return bytes.Compare(m[:], o[:])
}

// String returns the canonical form, e.g. AA:BB:CC:DD:EE:FF.
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseMAC.
func (m *MAC) UnmarshalText(text []byte) error {
	parsed, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMAC parses the colon-separated form: exactly six groups of two
// hexadecimal digits (either case), nothing before or after.
//
// On failure the returned error is a *ParseError positioned at the first
// character that did not match.
func ParseMAC(s string) (MAC, error) {
	sc := &textScanner{input: []rune(s)}

	var m MAC
	for i := range m {
		if i > 0 {
			if err := sc.literal(':'); err != nil {
				return MAC{}, err
			}
		}
		b, err := sc.hexByte()
		if err != nil {
			return MAC{}, err
		}
		m[i] = b
	}
	if err := sc.end(); err != nil {
		return MAC{}, err
	}
	return m, nil
}

// MustParseMAC is like ParseMAC but panics on error.
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

// textScanner walks a string one character at a time and reports failures
// at its current position.
type textScanner struct {
	input []rune
	pos   int
}

func (sc *textScanner) fail(expected Note) error {
	found := unexpectedLabel(LabelEndOfInput)
	if sc.pos < len(sc.input) {
		found = unexpectedRune(sc.input[sc.pos])
	}
	return &ParseError{Input: InputMAC, Position: sc.pos, Notes: []Note{found, expected}}
}

func (sc *textScanner) literal(r rune) error {
	if sc.pos >= len(sc.input) || sc.input[sc.pos] != r {
		return sc.fail(expectedRune(r))
	}
	sc.pos++
	return nil
}

func (sc *textScanner) hexDigit() (byte, error) {
	if sc.pos < len(sc.input) {
		if v, ok := hexValue(sc.input[sc.pos]); ok {
			sc.pos++
			return v, nil
		}
	}
	return 0, sc.fail(expectedLabel(LabelHexDigit))
}

func (sc *textScanner) hexByte() (byte, error) {
	hi, err := sc.hexDigit()
	if err != nil {
		return 0, err
	}
	lo, err := sc.hexDigit()
	if err != nil {
		return 0, err
	}
	return hi<<4 | lo, nil
}

func (sc *textScanner) end() error {
	if sc.pos != len(sc.input) {
		return sc.fail(expectedLabel(LabelEndOfInput))
	}
	return nil
}

func hexValue(r rune) (byte, bool) {
	switch {
	case r >= '0' && r <= '9':
		return byte(r - '0'), true
	case r >= 'a' && r <= 'f':
		return byte(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return byte(r-'A') + 10, true
	}
	return 0, false
}
