package scanning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server     *ghttp.Server
		engine     *Ollama
		transcript *Transcript
		err        error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		engine, err = NewOllama(server.URL(), "qwen2-vl:7b")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		transcript, err = engine.Recognize(context.Background(), []byte("png bytes"))
	})

	When("the model answers with a transcript", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
					Expect(req.Model).To(Equal("qwen2-vl:7b"))
					Expect(req.Stream).To(BeFalse())
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(ConsistOf(base64.StdEncoding.EncodeToString([]byte("png bytes"))))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```json\n{\"text\": \"Hertz\\nTOTAL $89.00\", \"confidence\": 0.75}\n```"},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the transcript", func() {
			Expect(transcript.Text).To(Equal("Hertz\nTOTAL $89.00"))
			Expect(transcript.Confidence).To(Equal(0.75))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})

	When("the model does not answer with JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "I cannot read this image."},
				Done:    true,
			}))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("parsing transcript")))
		})
	})
})
