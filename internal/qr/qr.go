// Package qr generates QR codes that let a phone wake-on-LAN app send the
// magic packet this listener waits for.
//
// The QR payload is a JSON object with the target MAC address and where to
// send the packet. It carries no secrets.
package qr

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	goqr "github.com/skip2/go-qrcode"

	"github.com/merlos/wolhook/pkg/protocol"
)

// Payload is the data encoded into the QR code.
type Payload struct {
	// Name is the suggested label for this target on the sender.
	Name string `json:"name,omitempty"`

	// MAC is the address to put in the magic packet.
	MAC protocol.MAC `json:"mac"`

	// Host is the destination hostname, IP or broadcast address.
	Host string `json:"host"`

	// Port is the destination UDP port.
	Port uint16 `json:"port"`
}

// GenerateOptions controls QR code generation.
type GenerateOptions struct {
	// Size is the QR image size in pixels (default: 256).
	Size int

	// OutputPath is the file path to write the QR PNG to.
	// If empty, the QR is printed to Out as text art.
	OutputPath string

	// RecoveryLevel is the QR error correction level (L, M, Q, H).
	// Default is M.
	RecoveryLevel goqr.RecoveryLevel

	// Out receives the text art or the confirmation message. Defaults to stdout.
	Out io.Writer
}

// Encode returns the JSON text stored in the QR code.
func Encode(payload *Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshalling QR payload: %w", err)
	}
	return string(data), nil
}

// Generate encodes payload into a QR code. If opts.OutputPath is set, the PNG
// is written to that path; otherwise text art is printed to opts.Out.
func Generate(payload *Payload, opts *GenerateOptions) error {
	if opts == nil {
		opts = &GenerateOptions{}
	}
	if opts.Size == 0 {
		opts.Size = 256
	}
	if opts.RecoveryLevel == 0 {
		opts.RecoveryLevel = goqr.Medium
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	data, err := Encode(payload)
	if err != nil {
		return err
	}

	if opts.OutputPath != "" {
		if err := goqr.WriteFile(data, opts.RecoveryLevel, opts.Size, opts.OutputPath); err != nil {
			return fmt.Errorf("writing QR PNG to %s: %w", opts.OutputPath, err)
		}
		fmt.Fprintf(out, "QR code written to %s\n", opts.OutputPath)
		return nil
	}

	q, err := goqr.New(data, opts.RecoveryLevel)
	if err != nil {
		return fmt.Errorf("generating QR: %w", err)
	}
	fmt.Fprintln(out, q.ToSmallString(false))
	return nil
}
