package wgadmin

import (
	"fmt"
	"os"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPNGSize is the pixel width of generated QR images. Large enough for
// phone cameras to scan a full client config reliably.
const QRPNGSize = 512

// ArtifactQRPNG renders the artifact at path as a PNG QR code, suitable
// for scanning with the WireGuard mobile apps.
func ArtifactQRPNG(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, QRPNGSize)
	if err != nil {
		return nil, fmt.Errorf("generating QR code: %w", err)
	}
	return png, nil
}

// ArtifactQRText renders the artifact at path as terminal QR art.
func ArtifactQRText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading artifact: %w", err)
	}
	qr, err := qrcode.New(string(data), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("generating QR code: %w", err)
	}
	return qr.ToSmallString(false), nil
}
