package qrcode

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// Generate renders content as a QR image under dir and returns the file
// path. Used for group invite links.
func Generate(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating QR directory: %w", err)
	}

	qrc, err := qrcode.New(content)
	if err != nil {
		return "", fmt.Errorf("error creating QR code: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("qr_%s.jpg", name))
	fileWriter, err := standard.New(filename)
	if err != nil {
		return "", fmt.Errorf("error creating file writer: %w", err)
	}

	if err = qrc.Save(fileWriter); err != nil {
		os.Remove(filename) // Clean up on error
		return "", fmt.Errorf("error saving QR code: %w", err)
	}

	return filename, nil
}

// Remove deletes a generated QR code file.
func Remove(filename string) error {
	return os.Remove(filename)
}
