package scanning

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is given
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiSession generates content and owns the client behind it
type geminiSession interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	Close() error
}

type genaiSession struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func (s *genaiSession) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return s.model.GenerateContent(ctx, parts...)
}

func (s *genaiSession) Close() error {
	return s.client.Close()
}

// Gemini implements the Engine interface using Google Gemini
type Gemini struct {
	apiKey         string
	modelName      string
	timeout        time.Duration
	sessionFactory func(ctx context.Context, apiKey, modelName string) (geminiSession, error)
}

// NewGemini creates a new Gemini engine
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	return &Gemini{
		apiKey:         apiKey,
		modelName:      modelName,
		timeout:        30 * time.Second,
		sessionFactory: newGenaiSession,
	}, nil
}

func newGenaiSession(ctx context.Context, apiKey, modelName string) (geminiSession, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &genaiSession{client: client, model: client.GenerativeModel(modelName)}, nil
}

// Name returns the provider name
func (g *Gemini) Name() string {
	return "gemini"
}

// Recognize transcribes the receipt. A client is created for this call and
// closed before returning.
func (g *Gemini) Recognize(ctx context.Context, imageData []byte) (*Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session, err := g.sessionFactory(ctx, g.apiKey, g.modelName)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	defer session.Close()

	// genai.ImageData expects just the format suffix (e.g., "png"), not the full MIME type
	parts := []genai.Part{
		genai.ImageData(imageFormat(imageData), imageData),
		genai.Text(transcribePrompt),
	}

	resp, err := session.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	transcript, err := parseTranscriptJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}
	return transcript, nil
}

// imageFormat sniffs the image type. Preprocessed images are PNG but the
// original upload is passed through when preprocessing falls back.
func imageFormat(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpeg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
