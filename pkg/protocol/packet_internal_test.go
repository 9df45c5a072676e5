package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The grammar itself is length-agnostic; ParseMagicPacket rejects wrong
// sizes before reaching it, so these cases are only reachable here.

func TestParseMagicPacketGrammar_TrailingByte(t *testing.T) {
	m := MAC{1, 2, 3, 4, 5, 6}
	pkt := append(MarshalMagicPacket(m), 0x42)

	_, err := parseMagicPacket(pkt)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PacketSize, perr.Position)
	assert.Equal(t, []Note{unexpectedByte(0x42), expectedLabel(LabelEndOfPacket)}, perr.Notes)
}

func TestParseMagicPacketGrammar_Truncated(t *testing.T) {
	m := MAC{1, 2, 3, 4, 5, 6}
	full := MarshalMagicPacket(m)

	tests := []struct {
		name    string
		length  int
		expects string
	}{
		{"inside header", 3, LabelHeader},
		{"inside capture", 9, LabelMAC},
		{"inside repetitions", 40, LabelRepeatedMAC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMagicPacket(full[:tt.length])
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.length, perr.Position)
			assert.Equal(t, unexpectedLabel(LabelEndOfPacket), perr.Notes[0])
			assert.True(t, perr.Expects(tt.expects))
		})
	}
}
