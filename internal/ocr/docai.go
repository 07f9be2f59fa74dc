package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"pricescan/internal/price"
)

const defaultDocumentAITimeout = 60 * time.Second

// DocumentAIConfig holds the processor coordinates for the Document AI
// receipt provider.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string // e.g. "us" or "eu"
	ProcessorID      string
	ProcessorVersion string
	Credentials      GoogleVisionCredentials
	Timeout          time.Duration
}

// DocumentAIProvider recognizes price tags and receipts with a Google
// Document AI processor. Like the Vision provider it is structured:
// amounts come from typed entities rather than text parsing, and the
// supplier name doubles as the product label.
type DocumentAIProvider struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
}

// NewDocumentAIProvider creates the provider from an explicit config.
func NewDocumentAIProvider(ctx context.Context, config DocumentAIConfig) (*DocumentAIProvider, error) {
	const op = "NewDocumentAIProvider"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, NewOCRError(op, ErrAuthentication, "project ID and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultDocumentAITimeout
	}

	var opts []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	switch {
	case config.Credentials.JSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(config.Credentials.JSON)))
	case config.Credentials.File != "":
		opts = append(opts, option.WithCredentialsFile(config.Credentials.File))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIProvider{client: client, config: config}, nil
}

// NewDocumentAIProviderWithClient creates the provider with an explicit
// client (for testing).
func NewDocumentAIProviderWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIProvider {
	if config.Timeout <= 0 {
		config.Timeout = defaultDocumentAITimeout
	}
	return &DocumentAIProvider{client: client, config: config}
}

// Name returns the provider's method identifier.
func (p *DocumentAIProvider) Name() string {
	return MethodDocumentAI
}

// RecognizeText processes the image and extracts amounts from the
// processor's entities.
func (p *DocumentAIProvider) RecognizeText(ctx context.Context, img Image) (*Recognition, error) {
	const op = "RecognizeText"

	if len(img.Data) == 0 {
		return nil, NewOCRError(op, ErrNoImage, "")
	}
	if len(img.Data) > MaxImageSizeBytes {
		return nil, NewOCRError(op, ErrInvalidImage, fmt.Sprintf("image size: %d bytes", len(img.Data)))
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  img.Data,
				MimeType: img.ContentType(),
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, WrapOCRError(op, classifyGoogleError(err), fmt.Sprintf("Document AI error: %v", err))
	}
	if resp.Document == nil {
		return nil, NewOCRError(op, ErrTransport, "no document in Document AI response")
	}

	return p.buildRecognition(resp.Document), nil
}

// processorName constructs the full processor resource name.
func (p *DocumentAIProvider) processorName() string {
	if p.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// buildRecognition walks the processor entities. Amount-typed entities
// become structured prices, preferring the normalized money value over
// re-parsing the mention text.
func (p *DocumentAIProvider) buildRecognition(doc *documentaipb.Document) *Recognition {
	var prices []float64
	var productName string
	var confidenceSum float32
	var confidenceCount int

	for _, entity := range doc.Entities {
		if entity.Confidence > 0 {
			confidenceSum += entity.Confidence
			confidenceCount++
		}

		switch entity.Type {
		case "total_amount", "gross_amount", "net_amount", "line_item/amount", "line_item/unit_price":
			if v, ok := entityAmount(entity); ok {
				prices = append(prices, v)
			}
		case "supplier_name", "vendor_name", "line_item/description":
			if productName == "" {
				productName = strings.TrimSpace(entity.MentionText)
			}
		}

		for _, child := range entity.Properties {
			if child.Type == "line_item/amount" || child.Type == "line_item/unit_price" {
				if v, ok := entityAmount(child); ok {
					prices = append(prices, v)
				}
			}
			if child.Type == "line_item/description" && productName == "" {
				productName = strings.TrimSpace(child.MentionText)
			}
		}
	}

	var confidence float64
	if confidenceCount > 0 {
		confidence = float64(confidenceSum) / float64(confidenceCount) * 100
	}

	return &Recognition{
		Text:        doc.Text,
		Confidence:  confidence,
		Prices:      dedupePrices(prices),
		ProductName: productName,
	}
}

// entityAmount extracts a monetary value from an entity, using the typed
// money value when present and falling back to parsing the mention text.
// Values outside the accepted price range are dropped like any other
// parser rejection.
func entityAmount(entity *documentaipb.Document_Entity) (float64, bool) {
	if nv := entity.NormalizedValue; nv != nil {
		if money := nv.GetMoneyValue(); money != nil {
			v := float64(money.Units) + float64(money.Nanos)/1e9
			if v >= price.MinPrice && v <= price.MaxPrice {
				return v, true
			}
			return 0, false
		}
	}
	return price.NormalizePrice(entity.MentionText)
}

// Close releases the underlying Document AI client.
func (p *DocumentAIProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
