package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-ocr/internal/cards"
	"github.com/zombor/receipt-ocr/internal/correction"
	"github.com/zombor/receipt-ocr/internal/inference"
	"github.com/zombor/receipt-ocr/internal/quality"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

// ErrNoStore is returned when corrections are listed without a local store configured
var ErrNoStore = errors.New("no local correction store configured")

// Preprocessor prepares an image for recognition
type Preprocessor interface {
	// Process returns the enhanced image, or data unchanged if enhancement fails
	Process(data []byte, contentType string) []byte
}

// Recognizer reads text from an image
type Recognizer interface {
	// Recognize never fails; a failed read is an empty, zero-confidence result
	Recognize(ctx context.Context, imageData []byte) scanning.Result
}

// CorrectionStore lists previously recorded corrections
type CorrectionStore interface {
	List() ([]*correction.Record, error)
}

// Service runs receipts through the scan pipeline and records corrections
type Service struct {
	preprocessor Preprocessor
	recognizer   Recognizer
	assessor     *quality.Assessor
	cards        *cards.Registry
	recorder     *correction.Recorder
	store        CorrectionStore
}

// NewService creates a new Service with default quality thresholds, no card registry and no local store
func NewService(preprocessor Preprocessor, recognizer Recognizer, recorder *correction.Recorder) *Service {
	return NewServiceWithDeps(preprocessor, recognizer, quality.NewAssessor(), nil, recorder, nil)
}

// NewServiceWithDeps creates a new Service with every dependency supplied
func NewServiceWithDeps(
	preprocessor Preprocessor,
	recognizer Recognizer,
	assessor *quality.Assessor,
	registry *cards.Registry,
	recorder *correction.Recorder,
	store CorrectionStore,
) *Service {
	if recorder == nil {
		recorder = correction.NewRecorder(nil)
	}
	return &Service{
		preprocessor: preprocessor,
		recognizer:   recognizer,
		assessor:     assessor,
		cards:        registry,
		recorder:     recorder,
		store:        store,
	}
}

// Scan preprocesses, recognizes, infers and assesses one receipt.
// It always returns a result; failures surface as missing fields and review reasons.
func (s *Service) Scan(ctx context.Context, doc RawDocument) *Inference {
	image := s.preprocessor.Process(doc.Data, doc.ContentType)
	ocr := s.recognizer.Recognize(ctx, image)
	fields := inference.Infer(ocr.Text)
	report := s.assessor.Assess(ocr, fields)

	result := &Inference{
		Text:       ocr.Text,
		Confidence: ocr.Confidence,
		Provider:   ocr.Provider,
		Fields:     fields,
		Report:     report,
	}

	if fields.CardLastFour != nil {
		if card, ok := s.cards.Match(fields.CardLastFour.Value); ok {
			result.CardMatch = &card
		}
	}

	slog.Info("Receipt scanned",
		"path", doc.Path,
		"provider", ocr.Provider,
		"overall_confidence", report.OverallConfidence,
		"needs_review", report.NeedsReview,
	)

	return result
}

// ScanAsync runs Scan in its own goroutine and delivers the single result on the returned channel
func (s *Service) ScanAsync(ctx context.Context, doc RawDocument) <-chan *Inference {
	out := make(chan *Inference, 1)
	go func() {
		defer close(out)
		out <- s.Scan(ctx, doc)
	}()
	return out
}

// SubmitCorrection records the difference between a scan and the submitted expense.
// It returns nil when nothing was corrected. Transmission never blocks or fails the caller.
func (s *Service) SubmitCorrection(ctx context.Context, req CorrectionRequest) *correction.Record {
	return s.recorder.Submit(ctx, correction.Submission{
		ExpenseID: req.ExpenseID,
		OCRText:   req.OriginalOCRText,
		Original:  req.OriginalInference,
		Final:     req.FinalFields,
		Notes:     req.Notes,
	})
}

// ListCorrections returns every locally stored correction
func (s *Service) ListCorrections() ([]*correction.Record, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	records, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("listing corrections: %w", err)
	}
	return records, nil
}

// Wait blocks until in-flight correction transmissions finish
func (s *Service) Wait() {
	s.recorder.Wait()
}
