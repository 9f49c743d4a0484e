package correction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-ocr/internal/inference"
)

// Sink receives correction records
type Sink interface {
	// Send delivers one record to the learning store or endpoint
	Send(ctx context.Context, record *Record) error
}

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates time-sortable UUIDv7 IDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// DefaultIDGenerator returns the UUIDv7 generator used by NewRecorder
func DefaultIDGenerator() IDGenerator {
	return &defaultIDGenerator{}
}

// DefaultTimeSource returns the wall clock
func DefaultTimeSource() TimeSource {
	return &defaultTimeSource{}
}

// DefaultSendTimeout bounds a single transmission
const DefaultSendTimeout = 10 * time.Second

// Submission is an expense as finally submitted by a human
type Submission struct {
	ExpenseID string
	OCRText   string
	Original  inference.FieldSet
	Final     Fields
	Notes     string
}

// Recorder turns submissions into correction records and transmits them in the background
type Recorder struct {
	sink        Sink
	idGenerator IDGenerator
	timeSource  TimeSource
	timeout     time.Duration
	wg          sync.WaitGroup
}

// NewRecorder creates a Recorder with default ID generator and time source
func NewRecorder(sink Sink) *Recorder {
	return NewRecorderWithDeps(sink, DefaultIDGenerator(), DefaultTimeSource(), DefaultSendTimeout)
}

// NewRecorderWithDeps creates a Recorder with custom dependencies for testing
func NewRecorderWithDeps(sink Sink, idGen IDGenerator, timeSrc TimeSource, timeout time.Duration) *Recorder {
	return &Recorder{
		sink:        sink,
		idGenerator: idGen,
		timeSource:  timeSrc,
		timeout:     timeout,
	}
}

// Submit records the corrections in sub, if any, and returns immediately.
// The returned record is nil when nothing was corrected. Transmission happens
// in the background; its failure is logged and never reported to the caller.
func (r *Recorder) Submit(ctx context.Context, sub Submission) *Record {
	diff := Compare(sub.Original, sub.Final)
	if len(diff.FirstEntries) > 0 {
		slog.Info("Fields entered manually",
			"expense_id", sub.ExpenseID,
			"fields", diff.FirstEntries,
		)
	}
	if diff.Corrected.IsEmpty() {
		return nil
	}

	record := &Record{
		ID:                r.idGenerator.Generate(),
		ExpenseID:         sub.ExpenseID,
		OriginalOCRText:   sub.OCRText,
		OriginalInference: sub.Original,
		CorrectedFields:   diff.Corrected,
		Notes:             sub.Notes,
		RecordedAt:        r.timeSource.Now(),
	}

	if r.sink == nil {
		return record
	}

	sent := *record
	r.wg.Add(1)
	go r.send(context.WithoutCancel(ctx), &sent)

	return record
}

func (r *Recorder) send(ctx context.Context, record *Record) {
	defer r.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Correction sink panicked", "record_id", record.ID, "panic", fmt.Sprint(p))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.sink.Send(ctx, record); err != nil {
		slog.Warn("Failed to send correction",
			"record_id", record.ID,
			"expense_id", record.ExpenseID,
			"error", err,
		)
		return
	}
	slog.Debug("Correction sent", "record_id", record.ID)
}

// Wait blocks until all in-flight transmissions have finished
func (r *Recorder) Wait() {
	r.wg.Wait()
}
