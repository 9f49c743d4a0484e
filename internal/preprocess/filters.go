package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"golang.org/x/image/draw"
)

const (
	stretchScale = 1.2
	midGray      = 128.0
)

// Grayscale converts img to 8-bit luminance
func Grayscale(img image.Image) (image.Image, error) {
	if g, ok := img.(*image.Gray); ok {
		return toGray(g), nil
	}
	return effect.Grayscale(img), nil
}

// NormalizeContrast stretches the luminance histogram to the full 0..255 range
func NormalizeContrast(img image.Image) (image.Image, error) {
	g := toGray(img)
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi <= lo {
		return g, nil
	}

	span := float64(hi - lo)
	return mapGray(g, func(v uint8) uint8 {
		return clamp(float64(v-lo) * 255 / span)
	}), nil
}

// Sharpen emphasizes glyph edges with bild's 3x3 sharpen kernel. Borders
// repeat the edge pixels.
func Sharpen(img image.Image) (image.Image, error) {
	return toGray(effect.Sharpen(toGray(img))), nil
}

// MedianDenoise replaces each pixel with the median of the pixels within radius 1
func MedianDenoise(img image.Image) (image.Image, error) {
	return toGray(effect.Median(toGray(img), 1)), nil
}

// LinearStretch boosts contrast by a fixed scale while keeping mid-gray fixed
func LinearStretch(img image.Image) (image.Image, error) {
	bias := midGray * (1 - stretchScale)
	return mapGray(toGray(img), func(v uint8) uint8 {
		return clamp(stretchScale*float64(v) + bias)
	}), nil
}

// mapGray applies fn to every luminance value
func mapGray(g *image.Gray, fn func(uint8) uint8) *image.Gray {
	out := adjust.Apply(g, func(c color.RGBA) color.RGBA {
		v := fn(c.R)
		return color.RGBA{R: v, G: v, B: v, A: c.A}
	})
	return toGray(out)
}

// toGray returns img as a tightly packed *image.Gray, converting when needed.
// Equal-channel RGBA converts back without loss, so bild's RGBA results keep
// their exact values.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Stride == g.Rect.Dx() && len(g.Pix) == g.Rect.Dx()*g.Rect.Dy() {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

func clamp(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
