package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DefaultMaxPixels bounds the decoded size of an image. Headers declaring
// more pixels are rejected before any pixel buffer is allocated.
const DefaultMaxPixels = 64_000_000

// decode turns an uploaded receipt into an image.
// PDFs are rendered from their first page; most receipts are single page.
func decode(data []byte, contentType string, maxPixels int) (image.Image, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case mimeType == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-")):
		return pdfToImage(data)
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		cfg, err := heic.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("reading HEIC/HEIF header: %w", err)
		}
		if err := checkPixels(cfg, maxPixels); err != nil {
			return nil, err
		}
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if err := checkPixels(cfg, maxPixels); err != nil {
			return nil, err
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, WebP, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// checkPixels rejects images larger than maxPixels. A maxPixels <= 0 disables the check.
func checkPixels(cfg image.Config, maxPixels int) error {
	if maxPixels <= 0 {
		return nil
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(maxPixels) {
		return fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box at offset 4 with a HEIC-related brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
