package qr_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlos/wolhook/internal/qr"
	"github.com/merlos/wolhook/pkg/protocol"
)

func testPayload() *qr.Payload {
	return &qr.Payload{
		Name: "nas",
		MAC:  protocol.MustParseMAC("52:54:00:12:34:56"),
		Host: "192.168.1.255",
		Port: 9,
	}
}

func TestEncode(t *testing.T) {
	data, err := qr.Encode(testPayload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"nas","mac":"52:54:00:12:34:56","host":"192.168.1.255","port":9}`, data)
}

func TestGenerate_Text(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, qr.Generate(testPayload(), &qr.GenerateOptions{Out: &out}))
	assert.NotEmpty(t, out.String())
}

func TestGenerate_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wol.png")
	var out bytes.Buffer

	require.NoError(t, qr.Generate(testPayload(), &qr.GenerateOptions{OutputPath: path, Out: &out}))
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}
