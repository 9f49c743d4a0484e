package correction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSink posts records as JSON to a learning endpoint
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a new HTTPSink
func NewHTTPSink(url string) (*HTTPSink, error) {
	if url == "" {
		return nil, fmt.Errorf("learning endpoint url is required")
	}
	return &HTTPSink{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Send posts the record. Any non-2xx status is an error.
func (h *HTTPSink) Send(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting correction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("learning endpoint error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// MultiSink sends every record to all of its sinks
type MultiSink []Sink

// Send delivers to each sink and joins their errors
func (m MultiSink) Send(ctx context.Context, record *Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
