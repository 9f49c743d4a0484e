// Package quality scores how far an inference result can be trusted.
// Reports are advisory: they tell a reviewer where to look and never block submission.
package quality

import (
	"fmt"
	"math"
	"unicode"

	"github.com/zombor/receipt-ocr/internal/inference"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

// Default thresholds
const (
	DefaultOCRWeight          = 0.4
	DefaultMinOCRConfidence   = 0.5
	DefaultMinFieldConfidence = 0.6
	DefaultMinPrintableRatio  = 0.85
)

// Report summarizes the quality of one inference
type Report struct {
	OverallConfidence float64  `json:"overallConfidence"`
	NeedsReview       bool     `json:"needsReview"`
	ReviewReasons     []string `json:"reviewReasons"`
}

// Assessor combines OCR and field confidences into a Report
type Assessor struct {
	OCRWeight          float64
	MinOCRConfidence   float64
	MinFieldConfidence float64
	MinPrintableRatio  float64
}

// NewAssessor creates an Assessor with default thresholds
func NewAssessor() *Assessor {
	return &Assessor{
		OCRWeight:          DefaultOCRWeight,
		MinOCRConfidence:   DefaultMinOCRConfidence,
		MinFieldConfidence: DefaultMinFieldConfidence,
		MinPrintableRatio:  DefaultMinPrintableRatio,
	}
}

type requiredField struct {
	name       string
	present    bool
	confidence float64
}

// requiredFields are the fields an expense cannot be submitted without
func requiredFields(fields inference.FieldSet) []requiredField {
	return []requiredField{
		fieldOf("merchant", fields.Merchant),
		fieldOf("amount", fields.Amount),
		fieldOf("date", fields.Date),
	}
}

func fieldOf[T any](name string, f *inference.Field[T]) requiredField {
	if f == nil {
		return requiredField{name: name}
	}
	return requiredField{name: name, present: true, confidence: f.Confidence}
}

// Assess builds the quality report for an OCR result and the fields inferred from it
func (a *Assessor) Assess(ocr scanning.Result, fields inference.FieldSet) Report {
	reasons := make([]string, 0)

	switch {
	case ocr.Text == "":
		reasons = append(reasons, "OCR failed: no text could be read from the image, enter the expense manually")
	case ocr.Confidence < a.MinOCRConfidence:
		reasons = append(reasons, fmt.Sprintf("Low OCR confidence (%.0f%%), the image may be blurry or poorly lit", ocr.Confidence*100))
	}

	if ocr.Text != "" && printableRatio(ocr.Text) < a.MinPrintableRatio {
		reasons = append(reasons, "Recognized text looks garbled, double-check every field")
	}

	required := requiredFields(fields)
	var fieldSum float64
	for _, f := range required {
		switch {
		case !f.present:
			reasons = append(reasons, fmt.Sprintf("Could not find the %s on the receipt", f.name))
		case f.confidence < a.MinFieldConfidence:
			reasons = append(reasons, fmt.Sprintf("The %s was found with low confidence (%.0f%%)", f.name, f.confidence*100))
		}
		if f.present {
			fieldSum += clamp01(f.confidence)
		}
	}
	fieldMean := fieldSum / float64(len(required))

	weight := clamp01(a.OCRWeight)
	overall := clamp01(weight*clamp01(ocr.Confidence) + (1-weight)*fieldMean)

	return Report{
		OverallConfidence: math.Round(overall*1000) / 1000,
		NeedsReview:       len(reasons) > 0,
		ReviewReasons:     reasons,
	}
}

// printableRatio returns the share of runes that are printable or whitespace.
// Engines emit replacement and control characters when they misread a region.
func printableRatio(text string) float64 {
	var total, printable int
	for _, r := range text {
		total++
		if r == unicode.ReplacementChar {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(printable) / float64(total)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
