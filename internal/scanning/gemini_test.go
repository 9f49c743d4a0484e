package scanning

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockGeminiSession is a mock implementation of geminiSession
type mockGeminiSession struct {
	resp   *genai.GenerateContentResponse
	err    error
	parts  []genai.Part
	closed int
}

func (m *mockGeminiSession) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	m.parts = parts
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockGeminiSession) Close() error {
	m.closed++
	return nil
}

func geminiReply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

var _ = Describe("Gemini", func() {
	var (
		session    *mockGeminiSession
		gotModel   string
		factoryErr error
		engine     *Gemini
		transcript *Transcript
		err        error
	)

	BeforeEach(func() {
		session = &mockGeminiSession{
			resp: geminiReply("```json\n{\"text\": \"Hertz\\nTOTAL $89.00\", \"confidence\": 0.8}\n```"),
		}
		gotModel = ""
		factoryErr = nil
	})

	JustBeforeEach(func() {
		engine, err = NewGemini("test-key", "")
		Expect(err).NotTo(HaveOccurred())
		engine.sessionFactory = func(ctx context.Context, apiKey, modelName string) (geminiSession, error) {
			gotModel = modelName
			if factoryErr != nil {
				return nil, factoryErr
			}
			return session, nil
		}
		transcript, err = engine.Recognize(context.Background(), []byte("png bytes"))
	})

	When("the model answers with a transcript", func() {
		It("should return the transcript", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(transcript.Text).To(Equal("Hertz\nTOTAL $89.00"))
			Expect(transcript.Confidence).To(Equal(0.8))
		})

		It("should use the default model", func() {
			Expect(gotModel).To(Equal(DefaultGeminiModel))
		})

		It("should send the image before the prompt", func() {
			Expect(session.parts).To(HaveLen(2))
			Expect(session.parts[0]).To(Equal(genai.ImageData("png", []byte("png bytes"))))
		})

		It("should close the client once", func() {
			Expect(session.closed).To(Equal(1))
		})
	})

	When("generation fails", func() {
		BeforeEach(func() {
			session.err = errors.New("quota exceeded")
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("generating content")))
		})

		It("should close the client once", func() {
			Expect(session.closed).To(Equal(1))
		})
	})

	When("the response has no candidates", func() {
		BeforeEach(func() {
			session.resp = &genai.GenerateContentResponse{}
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("no response from gemini")))
		})

		It("should close the client once", func() {
			Expect(session.closed).To(Equal(1))
		})
	})

	When("the client cannot be created", func() {
		BeforeEach(func() {
			factoryErr = errors.New("bad credentials")
		})

		It("returns the error without a session to close", func() {
			Expect(err).To(MatchError(ContainSubstring("creating gemini client")))
			Expect(session.closed).To(BeZero())
		})
	})

	When("no API key is given", func() {
		It("should refuse to construct", func() {
			_, err := NewGemini("", "")
			Expect(err).To(HaveOccurred())
		})
	})
})
