package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/otiai10/gosseract/v2"
)

const (
	// priceCharWhitelist restricts recognition to digits and price
	// punctuation; price tags are not prose.
	priceCharWhitelist = "0123456789$.,"

	// defaultInitTimeout bounds how long a caller waits for an in-flight
	// engine initialization before giving up.
	defaultInitTimeout = 10 * time.Second
)

// TesseractConfig configures the local offline engine.
type TesseractConfig struct {
	// Language is the traineddata language, default "spa".
	Language string

	// InitTimeout overrides the bounded wait on initialization.
	InitTimeout time.Duration
}

// TesseractProvider runs a locally-embedded Tesseract engine through
// gosseract. The engine is created lazily on first use and reused across
// calls; initialization is idempotent and safe to call concurrently, with
// concurrent callers waiting on the same in-flight setup. Recognition
// owns the engine exclusively for its duration, so concurrent calls are
// serialized. Terminate releases the engine; Restart recovers from a
// wedged engine.
type TesseractProvider struct {
	config TesseractConfig

	mu       sync.Mutex // guards the fields below and serializes recognition
	client   *gosseract.Client
	initDone chan struct{} // non-nil while an initialization is in flight
	initErr  error         // outcome of the last initialization
}

// NewTesseractProvider creates the provider. The engine itself is not
// loaded until Initialize or the first RecognizeText call.
func NewTesseractProvider(config TesseractConfig) *TesseractProvider {
	if config.Language == "" {
		config.Language = "spa"
	}
	if config.InitTimeout <= 0 {
		config.InitTimeout = defaultInitTimeout
	}
	return &TesseractProvider{config: config}
}

// Name returns the provider's method identifier.
func (p *TesseractProvider) Name() string {
	return MethodTesseract
}

// Initialize loads the engine and tunes it for price tags. Calling it on
// an initialized provider is a no-op; calling it while another
// initialization is in flight waits for that one, bounded by the
// configured timeout.
func (p *TesseractProvider) Initialize(ctx context.Context) error {
	const op = "Initialize"

	p.mu.Lock()
	if p.client != nil {
		p.mu.Unlock()
		return nil
	}
	if p.initDone != nil {
		done := p.initDone
		p.mu.Unlock()
		return p.waitForInit(ctx, done)
	}
	done := make(chan struct{})
	p.initDone = done
	p.mu.Unlock()

	client, err := p.setupClient()

	p.mu.Lock()
	if err != nil {
		p.initErr = WrapOCRError(op, ErrEngineInit, err.Error())
	} else {
		p.client = client
		p.initErr = nil
	}
	result := p.initErr
	p.initDone = nil
	close(done)
	p.mu.Unlock()

	return result
}

// setupClient creates and configures a gosseract client.
func (p *TesseractProvider) setupClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	steps := []func() error{
		func() error { return client.SetLanguage(p.config.Language) },
		func() error { return client.SetWhitelist(priceCharWhitelist) },
		// Sparse segmentation: price tags scatter short text fragments
		// instead of laying out paragraphs.
		func() error { return client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT) },
		func() error {
			return client.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "0")
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

// waitForInit blocks until the in-flight initialization finishes, the
// context is canceled, or the bounded wait elapses.
func (p *TesseractProvider) waitForInit(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.initErr
	case <-ctx.Done():
		return WrapOCRError("Initialize", ctx.Err(), "canceled while waiting for engine initialization")
	case <-time.After(p.config.InitTimeout):
		return NewOCRError("Initialize", ErrInitTimeout, fmt.Sprintf("waited %s", p.config.InitTimeout))
	}
}

// RecognizeText runs the engine on the image, initializing it first when
// needed. Confidence comes from word-level scores when the engine reports
// them, with a density heuristic as fallback.
func (p *TesseractProvider) RecognizeText(ctx context.Context, img Image) (*Recognition, error) {
	const op = "RecognizeText"

	if len(img.Data) == 0 {
		return nil, NewOCRError(op, ErrNoImage, "")
	}
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		// Terminated between Initialize and the lock.
		return nil, NewOCRError(op, ErrEngineInit, "engine was terminated")
	}

	if err := p.client.SetImageFromBytes(img.Data); err != nil {
		return nil, WrapOCRError(op, ErrInvalidImage, err.Error())
	}

	text, err := p.client.Text()
	if err != nil {
		return nil, WrapOCRError(op, ErrEngineInit, fmt.Sprintf("recognition failed: %v", err))
	}
	text = strings.TrimSpace(text)

	return &Recognition{
		Text:       text,
		Confidence: p.confidence(text),
	}, nil
}

// confidence averages word-level scores from the engine, falling back to
// a printable/digit density heuristic when no boxes are available.
func (p *TesseractProvider) confidence(text string) float64 {
	boxes, err := p.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil && len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence
		}
		return sum / float64(len(boxes))
	}

	if text == "" {
		return 0
	}
	useful := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsDigit(r) || r == '$' || r == '.' || r == ',' {
			useful++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(useful) / float64(total) * 100
}

// Terminate releases the engine. The provider can be reused; the next
// call reinitializes.
func (p *TesseractProvider) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	if err != nil {
		return WrapOCRError("Terminate", err, "failed to close engine")
	}
	return nil
}

// Restart tears the engine down and reinitializes it, for recovery after
// a recognition failure.
func (p *TesseractProvider) Restart(ctx context.Context) error {
	if err := p.Terminate(); err != nil {
		return err
	}
	return p.Initialize(ctx)
}

// Close implements io.Closer for scoped-resource callers.
func (p *TesseractProvider) Close() error {
	return p.Terminate()
}
