// Package protocol defines the Wake-on-LAN data formats understood by wolhook:
// the textual MAC address grammar and the UDP magic packet grammar.
//
// Magic packet layout (102 bytes total):
//
//	[0xFF x 6] [mac(6)] x 16
//
// Both grammars report failures as *ParseError values carrying the position
// of the first element that did not match and an ordered list of notes, so
// malformed or spoofed traffic can be diagnosed precisely. A packet of the
// wrong size is rejected with *LengthError before the grammar is run.
//
// Everything in this package is pure and safe for concurrent use.
package protocol

const (
	// HeaderSize is the number of 0xFF synchronisation bytes.
	HeaderSize = 6

	// Repetitions is how many times the target MAC appears in a packet.
	Repetitions = 16

	// PacketSize is the total wire size of a magic packet.
	PacketSize = HeaderSize + Repetitions*MACSize // 102 bytes

	headerByte = 0xFF
)

// ParseMagicPacket validates b as a magic packet and returns the MAC it
// advertises.
//
// A buffer that is not exactly PacketSize bytes yields a *LengthError.
// Otherwise a grammar failure yields a *ParseError positioned at the first
// offending byte.
func ParseMagicPacket(b []byte) (MAC, error) {
	if len(b) != PacketSize {
		return MAC{}, &LengthError{Length: len(b)}
	}
	return parseMagicPacket(b)
}

// parseMagicPacket applies the grammar in order: header, address capture,
// repetitions, end of packet.
func parseMagicPacket(b []byte) (MAC, error) {
	sc := &byteScanner{input: b}

	for sc.pos < HeaderSize {
		if !sc.next(headerByte) {
			return MAC{}, sc.fail(expectedLabel(LabelHeader))
		}
	}

	var m MAC
	for i := range m {
		c, ok := sc.take()
		if !ok {
			return MAC{}, sc.fail(expectedLabel(LabelMAC))
		}
		m[i] = c
	}

	for rep := 1; rep < Repetitions; rep++ {
		for _, want := range m {
			if !sc.next(want) {
				return MAC{}, sc.fail(
					expectedLabel(LabelRepeatedMAC),
					expectedRepetitions(Repetitions-rep, LabelMAC),
				)
			}
		}
	}

	if sc.pos != len(sc.input) {
		return MAC{}, sc.fail(expectedLabel(LabelEndOfPacket))
	}
	return m, nil
}

// MarshalMagicPacket builds the PacketSize-byte magic packet for m.
func MarshalMagicPacket(m MAC) []byte {
	pkt := make([]byte, PacketSize)
	for i := 0; i < HeaderSize; i++ {
		pkt[i] = headerByte
	}
	for i := 0; i < Repetitions; i++ {
		copy(pkt[HeaderSize+i*MACSize:], m[:])
	}
	return pkt
}

type byteScanner struct {
	input []byte
	pos   int
}

// next consumes one byte if it equals want.
func (sc *byteScanner) next(want byte) bool {
	if sc.pos >= len(sc.input) || sc.input[sc.pos] != want {
		return false
	}
	sc.pos++
	return true
}

func (sc *byteScanner) take() (byte, bool) {
	if sc.pos >= len(sc.input) {
		return 0, false
	}
	c := sc.input[sc.pos]
	sc.pos++
	return c, true
}

func (sc *byteScanner) fail(expected ...Note) error {
	found := unexpectedLabel(LabelEndOfPacket)
	if sc.pos < len(sc.input) {
		found = unexpectedByte(sc.input[sc.pos])
	}
	notes := make([]Note, 0, 1+len(expected))
	notes = append(notes, found)
	notes = append(notes, expected...)
	return &ParseError{Input: InputMagicPacket, Position: sc.pos, Notes: notes}
}
