package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTrOCRModel is the printed-text TrOCR checkpoint served by the
	// Hugging Face inference API.
	DefaultTrOCRModel = "microsoft/trocr-large-printed"

	defaultTrOCRTimeout = 30 * time.Second

	// trocrWarmupDelay is the suggested wait while the hosted model loads.
	trocrWarmupDelay = 20 * time.Second

	// trocrConfidence is assigned to successful responses; the inference
	// API reports no score for image-to-text generation.
	trocrConfidence = 85
)

// TrOCRConfig configures the Hugging Face inference provider. APIKey is
// required.
type TrOCRConfig struct {
	APIKey   string
	Model    string
	Endpoint string // overrides the derived inference URL (for testing)

	HTTPClient *http.Client
}

// TrOCRProvider runs recognition on the Hugging Face hosted inference API.
// Hosted models may be cold: a 503 surfaces as a warming-up failure with a
// retry hint so the chain can fall through without blocking.
type TrOCRProvider struct {
	config TrOCRConfig
	client *http.Client
}

// NewTrOCRProvider creates the provider from an explicit config.
func NewTrOCRProvider(config TrOCRConfig) (*TrOCRProvider, error) {
	if config.APIKey == "" {
		return nil, NewOCRError("NewTrOCRProvider", ErrAuthentication, "Hugging Face API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultTrOCRModel
	}
	if config.Endpoint == "" {
		config.Endpoint = fmt.Sprintf("https://api-inference.huggingface.co/models/%s", config.Model)
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTrOCRTimeout}
	}
	return &TrOCRProvider{config: config, client: client}, nil
}

// Name returns the provider's method identifier.
func (p *TrOCRProvider) Name() string {
	return MethodTrOCR
}

// RecognizeText posts the raw image bytes and reads the generated text.
func (p *TrOCRProvider) RecognizeText(ctx context.Context, img Image) (*Recognition, error) {
	const op = "RecognizeText"

	if len(img.Data) == 0 {
		return nil, NewOCRError(op, ErrNoImage, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(img.Data))
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	req.Header.Set("Content-Type", img.ContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, WrapOCRError(op, ErrTransport, fmt.Sprintf("inference request failed: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		// Model still loading; suggest waiting before the next attempt.
		return nil, WrapOCRError(op, &RetryableError{Err: ErrServiceUnavailable, RetryAfter: trocrWarmupDelay}, "model is loading")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewOCRError(op, ErrAuthentication, fmt.Sprintf("inference API status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, NewOCRError(op, ErrTransport, fmt.Sprintf("inference API status %d", resp.StatusCode))
	}

	text, err := decodeGeneratedText(resp.Body)
	if err != nil {
		return nil, WrapOCRError(op, ErrTransport, fmt.Sprintf("failed to decode inference response: %v", err))
	}

	rec := &Recognition{Text: text}
	if text != "" {
		rec.Confidence = trocrConfidence
	}
	return rec, nil
}

// decodeGeneratedText handles both response shapes of the inference API:
// an array of generations or a single object.
func decodeGeneratedText(body io.Reader) (string, error) {
	type generation struct {
		GeneratedText string `json:"generated_text"`
	}

	dec := json.NewDecoder(body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return "", err
	}

	var many []generation
	if err := json.Unmarshal(raw, &many); err == nil {
		if len(many) == 0 {
			return "", nil
		}
		return strings.TrimSpace(many[0].GeneratedText), nil
	}

	var one generation
	if err := json.Unmarshal(raw, &one); err != nil {
		return "", err
	}
	return strings.TrimSpace(one.GeneratedText), nil
}
