package whatsapp

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// WriteQRASCII renders a pairing code as half-block characters so it can be
// scanned from a terminal.
func WriteQRASCII(w io.Writer, code string) error {
	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("generate qr: %w", err)
	}
	qr.DisableBorder = true
	bmp := qr.Bitmap()
	if len(bmp)%2 == 1 {
		width := 0
		if len(bmp) > 0 {
			width = len(bmp[0])
		}
		bmp = append(bmp, make([]bool, width))
	}

	var out strings.Builder
	out.WriteString("\nScan with WhatsApp > Linked devices:\n")
	for y := 0; y < len(bmp); y += 2 {
		top, bottom := bmp[y], bmp[y+1]
		for x := range top {
			switch {
			case top[x] && bottom[x]:
				out.WriteRune('█')
			case top[x]:
				out.WriteRune('▀')
			case bottom[x]:
				out.WriteRune('▄')
			default:
				out.WriteRune(' ')
			}
		}
		out.WriteByte('\n')
	}
	out.WriteByte('\n')
	_, err = io.WriteString(w, out.String())
	return err
}

// PNGDataURL encodes a pairing code as an inline PNG for HTTP clients.
func PNGDataURL(code string, size int) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
