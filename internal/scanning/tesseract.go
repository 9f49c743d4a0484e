package scanning

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Whitelist restricts recognition to characters that appear in receipt fields.
// Anything else on a receipt (logos, barcodes, decorative glyphs) only adds noise.
const Whitelist = "0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz" +
	"$€£.,:/-#*@&%' "

// ocrSession is the part of *gosseract.Client the engine drives
type ocrSession interface {
	SetLanguage(langs ...string) error
	SetWhitelist(whitelist string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Tesseract implements the Engine interface using a local Tesseract install
type Tesseract struct {
	languages     []string
	clientFactory func() ocrSession
}

// NewTesseract creates a new Tesseract engine. Languages default to "eng".
func NewTesseract(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{
		languages:     languages,
		clientFactory: func() ocrSession { return gosseract.NewClient() },
	}
}

// Name returns the provider name
func (t *Tesseract) Name() string {
	return "tesseract"
}

// Recognize reads the receipt with a client that lives only for this call
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte) (*Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := t.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("setting languages: %w", err)
	}
	if err := client.SetWhitelist(Whitelist); err != nil {
		return nil, fmt.Errorf("setting whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	return &Transcript{
		Text:       text,
		Confidence: meanWordConfidence(client),
	}, nil
}

// meanWordConfidence averages per-word confidence, which Tesseract reports as 0..100
func meanWordConfidence(client ocrSession) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100.0
}
