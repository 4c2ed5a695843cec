package session

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// GenerateToken returns 32 hex characters from crypto/rand. 128 bits keeps
// tokens unguessable; the store's unique constraint plus a retry in Create
// covers the negligible collision case.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ScanURL builds the public URL a scanned QR code opens. The token is the
// only identifier the redemption endpoint needs.
func ScanURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/scan?token=" + url.QueryEscape(token)
}

// QRPNG renders the scan URL as a PNG image.
func QRPNG(scanURL string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(scanURL, qrcode.Medium, size)
}
