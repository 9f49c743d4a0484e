package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Transcript is the raw output of an OCR engine
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of one recognition. On engine failure Text is empty
// and Confidence is 0; it is never nil and never an error.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..1
	Provider   string  `json:"provider"`
}

// Engine defines the interface for OCR providers
type Engine interface {
	// Name identifies the provider in results and logs
	Name() string
	// Recognize reads the text of a receipt image. Implementations acquire
	// their session for this call only and release it before returning.
	Recognize(ctx context.Context, imageData []byte) (*Transcript, error)
}

// Recognizer runs an Engine and degrades every failure to an empty Result
type Recognizer struct {
	engine Engine
}

// NewRecognizer creates a Recognizer for the given engine
func NewRecognizer(engine Engine) *Recognizer {
	return &Recognizer{engine: engine}
}

// Provider returns the engine name
func (r *Recognizer) Provider() string {
	return r.engine.Name()
}

// Recognize reads the text of imageData. It does not retry.
func (r *Recognizer) Recognize(ctx context.Context, imageData []byte) (res Result) {
	provider := r.engine.Name()
	res = Result{Provider: provider}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("OCR engine panicked", "provider", provider, "panic", fmt.Sprint(p))
			res = Result{Provider: provider}
		}
	}()

	transcript, err := r.engine.Recognize(ctx, imageData)
	if err != nil {
		slog.Error("Failed to recognize receipt text",
			"provider", provider,
			"file_size", len(imageData),
			"error", err,
		)
		return res
	}
	if transcript == nil {
		return res
	}

	res.Text = applyWhitelist(transcript.Text)
	if res.Text != "" {
		res.Confidence = clampConfidence(transcript.Confidence)
	}
	return res
}

// RecognizeAsync runs Recognize in its own goroutine. The channel receives
// exactly one Result and is then closed.
func (r *Recognizer) RecognizeAsync(ctx context.Context, imageData []byte) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- r.Recognize(ctx, imageData)
	}()
	return ch
}

// applyWhitelist drops every character outside Whitelist except line breaks
// and tabs, then trims trailing blanks from each line and the text as a whole.
// Tesseract enforces the whitelist itself; LLM engines do not.
func applyWhitelist(text string) string {
	filtered := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || strings.ContainsRune(Whitelist, r) {
			return r
		}
		return -1
	}, text)

	lines := strings.Split(filtered, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(1, c))
}
