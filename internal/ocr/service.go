// Package ocr recognizes prices on photographed price tags.
//
// It wraps several OCR backends behind a single Provider interface and
// sequences them in a fallback chain: accurate paid cloud services first,
// the free offline engine last. Each provider normalizes its backend's
// response into a Recognition; the Hybrid orchestrator turns the first
// usable Recognition into a Result for the caller.
//
// Supported backends:
//   - Google Cloud Vision text detection (structured: prices and labels
//     are extracted from the word annotations)
//   - Google Document AI receipt processing (structured: amounts come
//     from typed entities)
//   - OCR.space (plain text over HTTP)
//   - Hugging Face hosted TrOCR inference (plain text over HTTP)
//   - Local Tesseract via gosseract (plain text, offline)
//
// Credentials and endpoints are injected through each provider's config;
// the package never reads the environment itself.
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// Provider method identifiers, reported in Result.Method.
const (
	MethodGoogleVision = "google-vision"
	MethodDocumentAI   = "document-ai"
	MethodOCRSpace     = "ocrspace"
	MethodTrOCR        = "trocr"
	MethodTesseract    = "tesseract"

	// MethodNone marks the terminal result after every provider failed.
	MethodNone = "none"
)

// Image is a single encoded still frame of a price tag.
type Image struct {
	// Data is the encoded image payload (JPEG or PNG).
	Data []byte

	// MIME is the payload content type, e.g. "image/jpeg". Detected from
	// the payload when empty.
	MIME string
}

// ContentType returns the declared MIME type, sniffing the payload if none
// was set.
func (img Image) ContentType() string {
	if img.MIME != "" {
		return img.MIME
	}
	return http.DetectContentType(img.Data)
}

// ImageFromFile reads an encoded image from disk.
func ImageFromFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image file: %w", err)
	}
	return Image{Data: data, MIME: http.DetectContentType(data)}, nil
}

// Recognition is the normalized response of a single provider.
type Recognition struct {
	// Text is the raw recognized text, possibly empty.
	Text string `json:"text"`

	// Confidence is the provider-reported or heuristically assigned
	// recognition confidence, 0-100.
	Confidence float64 `json:"confidence"`

	// Prices holds structured price candidates when the backend extracts
	// them itself, bypassing text parsing. Deduplicated by value.
	Prices []float64 `json:"prices,omitempty"`

	// ProductName is a best-guess label line, independent of any price.
	ProductName string `json:"product_name,omitempty"`
}

// Result is what the fallback chain hands back to the caller. Method is
// always set, MethodNone with a non-empty Err when no provider produced a
// usable price.
type Result struct {
	// Price is the single best detected price, nil when nothing usable
	// was found.
	Price *float64 `json:"price"`

	// AllPrices lists every plausible candidate, deduplicated, for
	// disambiguation by the caller. Never nil.
	AllPrices []float64 `json:"all_prices"`

	// Text is the raw text from the winning provider.
	Text string `json:"text"`

	// Confidence is the winning provider's confidence, 0-100.
	Confidence float64 `json:"confidence"`

	// Method identifies the provider that produced the result.
	Method string `json:"method"`

	// ProductName is the winning provider's label guess, when available.
	ProductName string `json:"product_name,omitempty"`

	// Err is a human-readable failure reason, set only with MethodNone.
	Err string `json:"error,omitempty"`
}

// Provider is one OCR backend in the fallback chain.
type Provider interface {
	// Name returns the provider's method identifier.
	Name() string

	// RecognizeText runs recognition on a single image. A Recognition
	// with empty Text and no Prices is a valid "nothing found" outcome;
	// errors are reserved for transport, auth, and engine failures.
	RecognizeText(ctx context.Context, img Image) (*Recognition, error)
}

// dedupePrices removes duplicate values preserving first-seen order.
func dedupePrices(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
