package correction

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

func walmartRecord(id string) *Record {
	return &Record{
		ID:                id,
		ExpenseID:         "exp-42",
		OriginalOCRText:   "Walmart\nTOTAL 42.17",
		OriginalInference: walmartInference(),
		CorrectedFields:   Fields{Merchant: ptr("Wal-Mart")},
		Notes:             "",
		RecordedAt:        time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC),
	}
}

var _ = Describe("HTTPSink", func() {
	var (
		server *ghttp.Server
		sink   *HTTPSink
		err    error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		sink, err = NewHTTPSink(server.URL() + "/learning/corrections")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		err = sink.Send(context.Background(), walmartRecord("rec-1"))
	})

	When("the endpoint accepts the record", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/learning/corrections"),
				ghttp.VerifyContentType("application/json"),
				ghttp.VerifyJSON(`{
					"id": "rec-1",
					"expenseId": "exp-42",
					"originalOCRText": "Walmart\nTOTAL 42.17",
					"originalInference": {
						"merchant": {"value": "Walmart", "confidence": 0.7},
						"amount": {"value": 42.17, "confidence": 0.9},
						"date": {"value": "01/15/2024", "confidence": 0.9},
						"category": {"value": "Groceries", "confidence": 0.6}
					},
					"correctedFields": {"merchant": "Wal-Mart"},
					"notes": "",
					"recordedAt": "2025-11-10T09:00:00Z"
				}`),
				ghttp.RespondWith(http.StatusAccepted, nil),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the endpoint rejects the record", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusBadGateway, "upstream down"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("status 502")))
		})
	})
})

var _ = Describe("NewHTTPSink", func() {
	It("should require a url", func() {
		_, err := NewHTTPSink("")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("MultiSink", func() {
	It("should send to every sink even when one fails", func() {
		failing := &mockSink{sendErr: errors.New("down")}
		working := &mockSink{}
		err := MultiSink{failing, working}.Send(context.Background(), walmartRecord("rec-1"))
		Expect(err).To(MatchError(ContainSubstring("down")))
		Expect(working.sent()).To(HaveLen(1))
	})

	It("should succeed when every sink succeeds", func() {
		Expect(MultiSink{&mockSink{}, &mockSink{}}.Send(context.Background(), walmartRecord("rec-1"))).To(Succeed())
	})
})

var _ = Describe("BoltStore", func() {
	var store *BoltStore

	BeforeEach(func() {
		var err error
		store, err = NewBoltStore(filepath.Join(GinkgoT().TempDir(), "corrections.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("Send", func() {
		It("should save the record", func() {
			Expect(store.Send(context.Background(), walmartRecord("rec-1"))).To(Succeed())
			saved, err := store.Get("rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.CorrectedFields.Merchant).To(HaveValue(Equal("Wal-Mart")))
			Expect(saved.OriginalInference.Amount.Value).To(Equal(42.17))
		})

		It("should require an id", func() {
			Expect(store.Send(context.Background(), walmartRecord(""))).NotTo(Succeed())
		})

		It("should respect a canceled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Expect(store.Send(ctx, walmartRecord("rec-1"))).To(MatchError(context.Canceled))
		})
	})

	Describe("Get", func() {
		It("returns an error for unknown ids", func() {
			_, err := store.Get("missing")
			Expect(err).To(MatchError(ContainSubstring("correction not found")))
		})
	})

	Describe("List", func() {
		It("should return an empty list when nothing is stored", func() {
			records, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("should return records in id order", func() {
			Expect(store.Send(context.Background(), walmartRecord("b"))).To(Succeed())
			Expect(store.Send(context.Background(), walmartRecord("a"))).To(Succeed())
			records, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal("a"))
			Expect(records[1].ID).To(Equal("b"))
		})
	})
})
