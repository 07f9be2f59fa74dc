package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOCRSpaceEndpoint is the public OCR.space parse endpoint.
	// The free tier allows 25k requests per month.
	DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"

	defaultOCRSpaceTimeout = 30 * time.Second

	// Exit-code-derived confidence levels. OCR.space reports a per-file
	// parse exit code instead of a score: 1 means full success.
	ocrSpaceConfidenceSuccess = 85
	ocrSpaceConfidencePartial = 50
)

// OCRSpaceConfig configures the OCR.space provider. APIKey is required.
type OCRSpaceConfig struct {
	APIKey   string
	Endpoint string
	Language string // OCR.space language code, e.g. "spa"

	// HTTPClient overrides the transport (for testing). The default
	// client applies a bounded request timeout.
	HTTPClient *http.Client
}

// OCRSpaceProvider sends the image to the OCR.space HTTP API and returns
// the recognized plain text. It has no structured price support; the
// orchestrator runs the parser over the text.
type OCRSpaceProvider struct {
	config OCRSpaceConfig
	client *http.Client
}

// ocrSpaceResponse mirrors the fields of the OCR.space JSON response the
// provider consumes.
type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// NewOCRSpaceProvider creates the provider from an explicit config.
func NewOCRSpaceProvider(config OCRSpaceConfig) (*OCRSpaceProvider, error) {
	if config.APIKey == "" {
		return nil, NewOCRError("NewOCRSpaceProvider", ErrAuthentication, "OCR.space API key is required")
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultOCRSpaceEndpoint
	}
	if config.Language == "" {
		config.Language = "spa"
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultOCRSpaceTimeout}
	}
	return &OCRSpaceProvider{config: config, client: client}, nil
}

// Name returns the provider's method identifier.
func (p *OCRSpaceProvider) Name() string {
	return MethodOCRSpace
}

// RecognizeText posts the image as a multipart form and maps the parse
// exit code to a confidence level.
func (p *OCRSpaceProvider) RecognizeText(ctx context.Context, img Image) (*Recognition, error) {
	const op = "RecognizeText"

	if len(img.Data) == 0 {
		return nil, NewOCRError(op, ErrNoImage, "")
	}

	body, contentType, err := p.buildForm(img)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to build multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, body)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to build request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, WrapOCRError(op, ErrTransport, fmt.Sprintf("OCR.space request failed: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewOCRError(op, ErrAuthentication, fmt.Sprintf("OCR.space status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, WrapOCRError(op, &RetryableError{Err: ErrServiceUnavailable, RetryAfter: 5 * time.Second}, "OCR.space unavailable")
	case resp.StatusCode != http.StatusOK:
		return nil, NewOCRError(op, ErrTransport, fmt.Sprintf("OCR.space status %d", resp.StatusCode))
	}

	var parsed ocrSpaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, WrapOCRError(op, ErrTransport, fmt.Sprintf("failed to decode OCR.space response: %v", err))
	}

	if len(parsed.ParsedResults) == 0 {
		// No parsed results is a normal "nothing found" outcome unless
		// the service flagged a processing error.
		if parsed.IsErroredOnProcessing {
			return nil, NewOCRError(op, ErrTransport, fmt.Sprintf("OCR.space processing error: %s", flattenErrorMessage(parsed.ErrorMessage)))
		}
		return &Recognition{}, nil
	}

	first := parsed.ParsedResults[0]
	text := strings.TrimSpace(first.ParsedText)

	var confidence float64
	switch {
	case first.FileParseExitCode == 1:
		confidence = ocrSpaceConfidenceSuccess
	case text != "":
		confidence = ocrSpaceConfidencePartial
	}

	return &Recognition{Text: text, Confidence: confidence}, nil
}

// buildForm assembles the multipart payload: image blob plus the OCR.space
// tuning fields. Engine 2 handles sparse numeric text better than the
// default; scaling improves low-resolution phone captures.
func (p *OCRSpaceProvider) buildForm(img Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"apikey":            p.config.APIKey,
		"language":          p.config.Language,
		"isOverlayRequired": "false",
		"detectOrientation": "true",
		"scale":             "true",
		"OCREngine":         "2",
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// flattenErrorMessage renders the ErrorMessage field, which OCR.space
// returns as either a string or an array of strings.
func flattenErrorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return string(raw)
}
