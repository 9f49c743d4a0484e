package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// transcribePrompt is shared by the LLM providers. Field extraction happens
// downstream on the text, so the model must not interpret anything.
const transcribePrompt = `You are reading a photographed receipt or invoice. Transcribe all of its text.

Rules:
- Copy every line exactly as printed, top to bottom, one receipt line per output line
- Do not correct spelling, reformat numbers or dates, or add text that is not printed
- Skip logos, barcodes and QR codes
- Estimate how legible the receipt was as a number between 0 and 1

Return ONLY valid JSON in this exact format:
{
  "text": "LINE 1\nLINE 2",
  "confidence": 0.0
}

Do not include any text before or after the JSON. Do not use markdown code blocks.`

// parseTranscriptJSON parses the JSON transcript returned by an LLM provider
func parseTranscriptJSON(text string) (*Transcript, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var transcript Transcript
	if err := json.Unmarshal([]byte(text), &transcript); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	transcript.Text = strings.TrimSpace(transcript.Text)
	transcript.Confidence = clampConfidence(transcript.Confidence)

	return &transcript, nil
}
