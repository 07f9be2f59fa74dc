package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"pricescan/internal/price"
)

const (
	// MaxImageSizeBytes is the maximum image size accepted for annotation.
	MaxImageSizeBytes = 20 * 1024 * 1024

	// googleVisionBaseConfidence is reported when the API returns no
	// per-annotation scores; text detection is trusted near the top of
	// the chain.
	googleVisionBaseConfidence = 95
)

// GoogleVisionCredentials selects how the Vision client authenticates.
// Exactly one of JSON or File is used; with neither set, application
// default credentials apply.
type GoogleVisionCredentials struct {
	// JSON is an inline service account key.
	JSON string

	// File is a path to a service account key file.
	File string
}

// GoogleVisionProvider recognizes price tags with Google Cloud Vision text
// detection. It is the structured provider: prices and a product label are
// pulled out of the word annotations, so the orchestrator does not need to
// parse the raw text.
type GoogleVisionProvider struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionProvider creates the provider from injected credentials.
func NewGoogleVisionProvider(ctx context.Context, creds GoogleVisionCredentials) (*GoogleVisionProvider, error) {
	const op = "NewGoogleVisionProvider"

	var opts []option.ClientOption
	switch {
	case creds.JSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(creds.JSON)))
	case creds.File != "":
		opts = append(opts, option.WithCredentialsFile(creds.File))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrAuthentication, "no Google credentials available")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return &GoogleVisionProvider{client: client}, nil
}

// NewGoogleVisionProviderWithClient creates the provider with an explicit
// client (for testing).
func NewGoogleVisionProviderWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionProvider {
	return &GoogleVisionProvider{client: client}
}

// Name returns the provider's method identifier.
func (g *GoogleVisionProvider) Name() string {
	return MethodGoogleVision
}

// RecognizeText runs text detection on the image and extracts structured
// prices and a product name from the annotations.
func (g *GoogleVisionProvider) RecognizeText(ctx context.Context, img Image) (*Recognition, error) {
	const op = "RecognizeText"

	if len(img.Data) == 0 {
		return nil, NewOCRError(op, ErrNoImage, "")
	}
	if len(img.Data) > MaxImageSizeBytes {
		return nil, NewOCRError(op, ErrInvalidImage, fmt.Sprintf("image size: %d bytes", len(img.Data)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: img.Data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, classifyGoogleError(err), fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, NewOCRError(op, ErrTransport, "empty Vision API response")
	}

	annResp := resp.Responses[0]
	if annResp.Error != nil {
		return nil, NewOCRError(op, ErrTransport, fmt.Sprintf("Vision API error: %s", annResp.Error.Message))
	}

	return g.buildRecognition(annResp.TextAnnotations), nil
}

// buildRecognition converts Vision text annotations into the common result
// shape. The first annotation carries the full text; the rest are word
// detections in reading order.
func (g *GoogleVisionProvider) buildRecognition(annotations []*visionpb.EntityAnnotation) *Recognition {
	if len(annotations) == 0 {
		return &Recognition{}
	}

	fullText := strings.TrimSpace(annotations[0].Description)

	var prices []float64
	var labels []string
	var confidenceSum float32
	var confidenceCount int

	for _, ann := range annotations[1:] {
		word := strings.TrimSpace(ann.Description)
		if word == "" {
			continue
		}
		if ann.Confidence > 0 {
			confidenceSum += ann.Confidence
			confidenceCount++
		}
		if looksLikePrice(word) {
			if v, ok := price.NormalizePrice(word); ok {
				prices = append(prices, v)
			}
			continue
		}
		if looksLikeLabel(word) {
			labels = append(labels, word)
		}
	}

	confidence := float64(googleVisionBaseConfidence)
	if confidenceCount > 0 {
		confidence = float64(confidenceSum) / float64(confidenceCount) * 100
	}

	return &Recognition{
		Text:        fullText,
		Confidence:  confidence,
		Prices:      dedupePrices(prices),
		ProductName: pickProductName(labels, fullText),
	}
}

// looksLikePrice reports whether a detected word is price-shaped: digits
// with an optional currency mark or separators, nothing alphabetic.
func looksLikePrice(word string) bool {
	hasDigit := false
	for _, r := range word {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '$' || r == '.' || r == ',':
		default:
			return false
		}
	}
	return hasDigit
}

// looksLikeLabel reports whether a detected word could be part of the
// product description: purely alphabetic and long enough to be a word.
func looksLikeLabel(word string) bool {
	if len(word) < 3 {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// pickProductName uses the first detected label, falling back to the first
// line of the full text.
func pickProductName(labels []string, fullText string) string {
	if len(labels) > 0 {
		return labels[0]
	}
	if line, _, found := strings.Cut(fullText, "\n"); found || line != "" {
		return strings.TrimSpace(line)
	}
	return ""
}

// classifyGoogleError maps Google API error strings onto the package
// error taxonomy.
func classifyGoogleError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "PERMISSION_DENIED"), strings.Contains(msg, "UNAUTHENTICATED"):
		return ErrAuthentication
	case strings.Contains(msg, "UNAVAILABLE"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return ErrServiceUnavailable
	default:
		return ErrTransport
	}
}

// Close releases the underlying Vision client.
func (g *GoogleVisionProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
