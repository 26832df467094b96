package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultImageSize matches the receipt rendering in the customer app.
const DefaultImageSize = 256

// PNG renders token as a QR code image.
func PNG(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	png, err := qrcode.Encode(token, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}
