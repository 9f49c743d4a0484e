package correction

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockSink is a mock implementation of Sink
type mockSink struct {
	mu        sync.Mutex
	records   []*Record
	sendErr   error
	panicWith any
	block     chan struct{}
	ctxErr    error
}

func (m *mockSink) Send(ctx context.Context, record *Record) error {
	if m.block != nil {
		<-m.block
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockSink) sent() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Record(nil), m.records...)
}

type mockIDGenerator struct {
	id string
}

func (m *mockIDGenerator) Generate() string {
	return m.id
}

type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time {
	return m.now
}

var _ = Describe("Recorder", func() {
	var (
		sink     *mockSink
		recorder *Recorder
		sub      Submission
		ctx      context.Context
		record   *Record
		now      time.Time
	)

	BeforeEach(func() {
		sink = &mockSink{}
		now = time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
		recorder = NewRecorderWithDeps(sink, &mockIDGenerator{id: "rec-1"}, &mockTimeSource{now: now}, time.Second)
		ctx = context.Background()
		sub = Submission{
			ExpenseID: "exp-42",
			OCRText:   "Walmart\nTOTAL 42.17",
			Original:  walmartInference(),
			Final: Fields{
				Merchant: ptr("Wal-Mart"),
				Amount:   ptr(42.17),
			},
			Notes: "store name is hyphenated",
		}
	})

	JustBeforeEach(func() {
		record = recorder.Submit(ctx, sub)
		recorder.Wait()
	})

	When("a field was corrected", func() {
		It("should return the record", func() {
			Expect(record).NotTo(BeNil())
			Expect(record.ID).To(Equal("rec-1"))
			Expect(record.ExpenseID).To(Equal("exp-42"))
			Expect(record.OriginalOCRText).To(Equal("Walmart\nTOTAL 42.17"))
			Expect(record.Notes).To(Equal("store name is hyphenated"))
			Expect(record.RecordedAt).To(Equal(now))
		})

		It("should only include the corrected field", func() {
			Expect(record.CorrectedFields).To(Equal(Fields{Merchant: ptr("Wal-Mart")}))
		})

		It("should keep the original inference", func() {
			Expect(record.OriginalInference.Merchant.Value).To(Equal("Walmart"))
		})

		It("should send the record to the sink", func() {
			Expect(sink.sent()).To(HaveLen(1))
			Expect(sink.sent()[0].CorrectedFields.Merchant).To(HaveValue(Equal("Wal-Mart")))
		})
	})

	When("nothing was corrected", func() {
		BeforeEach(func() {
			sub.Final = Fields{Merchant: ptr("Walmart"), Amount: ptr(42.17)}
		})

		It("should return nil", func() {
			Expect(record).To(BeNil())
		})

		It("should not send anything", func() {
			Expect(sink.sent()).To(BeEmpty())
		})
	})

	When("only first-time entries were made", func() {
		BeforeEach(func() {
			sub.Original.Amount = nil
			sub.Final = Fields{Merchant: ptr("Walmart"), Amount: ptr(42.00)}
		})

		It("should not produce a record", func() {
			Expect(record).To(BeNil())
			Expect(sink.sent()).To(BeEmpty())
		})
	})

	When("the sink fails", func() {
		BeforeEach(func() {
			sink.sendErr = errors.New("learning endpoint down")
		})

		It("should still return the record", func() {
			Expect(record).NotTo(BeNil())
		})
	})

	When("the sink panics", func() {
		BeforeEach(func() {
			sink.panicWith = "boom"
		})

		It("should swallow the panic", func() {
			Expect(record).NotTo(BeNil())
		})
	})

	When("the caller's context is canceled right away", func() {
		BeforeEach(func() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(context.Background())
			cancel()
		})

		It("should still transmit", func() {
			Expect(sink.sent()).To(HaveLen(1))
			Expect(sink.ctxErr).NotTo(HaveOccurred())
		})
	})

	When("no sink is configured", func() {
		BeforeEach(func() {
			recorder = NewRecorderWithDeps(nil, &mockIDGenerator{id: "rec-1"}, &mockTimeSource{now: now}, time.Second)
		})

		It("should still build the record", func() {
			Expect(record).NotTo(BeNil())
		})
	})
})

var _ = Describe("Recorder transmission", func() {
	It("should not block the caller while the sink is slow", func() {
		sink := &mockSink{block: make(chan struct{})}
		recorder := NewRecorder(sink)

		done := make(chan *Record, 1)
		go func() {
			done <- recorder.Submit(context.Background(), Submission{
				Original: walmartInference(),
				Final:    Fields{Date: ptr("02/01/2024")},
			})
		}()

		var record *Record
		Eventually(done).Should(Receive(&record))
		Expect(record).NotTo(BeNil())
		Expect(record.ID).NotTo(BeEmpty())
		Expect(sink.sent()).To(BeEmpty())

		close(sink.block)
		recorder.Wait()
		Expect(sink.sent()).To(HaveLen(1))
	})
})
