package utils

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/skip2/go-qrcode"
)

// GenerateQRCode renders content as a PNG QR code.
func GenerateQRCode(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TableOrderLink is the customer-facing ordering page for a table.
func TableOrderLink(appURL, tableUUID string) string {
	return fmt.Sprintf("%s/order/%s", strings.TrimRight(appURL, "/"), tableUUID)
}
