// Package preprocess improves receipt images before text recognition.
//
// Preprocessing is best effort: whenever decoding, any filter step or
// encoding fails, the caller gets the original bytes back unchanged.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension caps the longest side of an image before filtering.
// Phone photos are often 4000px+, far beyond what recognition needs.
const DefaultMaxDimension = 3000

// Step is a single image filter
type Step struct {
	Name  string
	Apply func(img image.Image) (image.Image, error)
}

// DefaultSteps returns the filter chain in the order it must run
func DefaultSteps() []Step {
	return []Step{
		{Name: "grayscale", Apply: Grayscale},
		{Name: "normalize-contrast", Apply: NormalizeContrast},
		{Name: "sharpen", Apply: Sharpen},
		{Name: "median-denoise", Apply: MedianDenoise},
		{Name: "linear-stretch", Apply: LinearStretch},
	}
}

// Preprocessor runs the filter chain over uploaded receipts
type Preprocessor struct {
	steps        []Step
	maxDimension int
	maxPixels    int
}

// NewPreprocessor creates a Preprocessor with the default filter chain
func NewPreprocessor() *Preprocessor {
	return NewPreprocessorWithSteps(DefaultMaxDimension, DefaultSteps()...)
}

// NewPreprocessorWithSteps creates a Preprocessor with custom steps for testing.
// A maxDimension <= 0 disables downscaling.
func NewPreprocessorWithSteps(maxDimension int, steps ...Step) *Preprocessor {
	return &Preprocessor{
		steps:        steps,
		maxDimension: maxDimension,
		maxPixels:    DefaultMaxPixels,
	}
}

// Process returns a PNG suited for text recognition, or data itself when
// anything goes wrong.
func (p *Preprocessor) Process(data []byte, contentType string) []byte {
	out, err := p.process(data, contentType)
	if err != nil {
		slog.Warn("Preprocessing failed, using original image",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return data
	}
	return out
}

func (p *Preprocessor) process(data []byte, contentType string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("preprocessing panicked: %v", r)
		}
	}()

	img, err := decode(data, contentType, p.maxPixels)
	if err != nil {
		return nil, err
	}
	img = downscale(img, p.maxDimension)

	for _, step := range p.steps {
		img, err = step.Apply(img)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name, err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale shrinks img so its longest side is at most maxDimension
func downscale(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if maxDimension <= 0 || longest <= maxDimension {
		return img
	}
	scale := float64(maxDimension) / float64(longest)
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
