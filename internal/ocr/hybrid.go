package ocr

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"pricescan/internal/logger"
	"pricescan/internal/price"
)

// DefaultConfidenceThreshold is the initial informational threshold.
const DefaultConfidenceThreshold = 60

// HybridOptions mutates the orchestrator configuration. Nil fields leave
// the current setting untouched, so repeating the same options is
// idempotent.
type HybridOptions struct {
	// Enable toggles providers by method identifier. Unknown names are
	// ignored.
	Enable map[string]bool

	// ConfidenceThreshold replaces the informational threshold.
	ConfidenceThreshold *float64
}

// HybridStatus reports the orchestrator configuration.
type HybridStatus struct {
	// Providers maps each method identifier to "enabled" or "disabled",
	// in no particular order; Order preserves the fallback priority.
	Providers map[string]string `json:"providers"`

	// Order lists provider identifiers in fallback priority.
	Order []string `json:"order"`

	// ConfidenceThreshold is informational: it is carried in
	// configuration and status but does not gate fallthrough.
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// Hybrid sequences providers in priority order until one yields a usable
// price. Providers run strictly sequentially, never raced: once an
// earlier (usually paid) provider succeeds, no further quota is spent.
//
// Configuration changes apply to the next RecognizePrice call; an
// in-flight recognition keeps the provider set it started with.
type Hybrid struct {
	mu sync.RWMutex

	// providers in fallback priority order, most accurate first.
	providers []Provider
	enabled   map[string]bool
	threshold float64

	log zerolog.Logger
}

// NewHybrid builds the orchestrator over the given providers, all enabled,
// in the given priority order.
func NewHybrid(providers ...Provider) *Hybrid {
	enabled := make(map[string]bool, len(providers))
	for _, p := range providers {
		enabled[p.Name()] = true
	}
	return &Hybrid{
		providers: providers,
		enabled:   enabled,
		threshold: DefaultConfidenceThreshold,
		log:       logger.WithComponent("hybrid-ocr"),
	}
}

// Configure applies the options. Repeating identical options has no
// further effect.
func (h *Hybrid) Configure(opts HybridOptions) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, on := range opts.Enable {
		if _, known := h.enabled[name]; known {
			h.enabled[name] = on
		}
	}
	if opts.ConfidenceThreshold != nil {
		h.threshold = *opts.ConfidenceThreshold
	}
}

// Status reports current provider enablement and the threshold.
func (h *Hybrid) Status() HybridStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HybridStatus{
		Providers:           make(map[string]string, len(h.providers)),
		Order:               make([]string, 0, len(h.providers)),
		ConfidenceThreshold: h.threshold,
	}
	for _, p := range h.providers {
		state := "disabled"
		if h.enabled[p.Name()] {
			state = "enabled"
		}
		status.Providers[p.Name()] = state
		status.Order = append(status.Order, p.Name())
	}
	return status
}

// RecognizePrice tries each enabled provider in priority order and stops
// at the first usable price. Provider failures are logged and recovered,
// never propagated; only an empty image is a hard error. When every
// provider falls through, the result carries MethodNone and a readable
// reason instead of an error.
func (h *Hybrid) RecognizePrice(ctx context.Context, img Image) (*Result, error) {
	const op = "RecognizePrice"

	if len(img.Data) == 0 {
		return nil, NewOCRError(op, ErrNoImage, "")
	}

	for _, p := range h.enabledProviders() {
		log := h.log.With().Str("provider", p.Name()).Logger()
		log.Debug().Msg("Trying OCR provider")

		rec, err := p.RecognizeText(ctx, img)
		if err != nil {
			// A single provider outage must never abort the chain.
			evt := log.Warn().Err(err)
			if delay := RetryAfterHint(err); delay > 0 {
				evt = evt.Dur("retry_after", delay)
			}
			evt.Msg("OCR provider failed, falling through")
			continue
		}

		if result, ok := h.buildResult(p, rec); ok {
			log.Info().
				Float64("price", *result.Price).
				Int("candidates", len(result.AllPrices)).
				Float64("confidence", result.Confidence).
				Msg("Price recognized")
			return result, nil
		}

		log.Debug().Msg("Provider returned no usable price, falling through")
	}

	return &Result{
		AllPrices: []float64{},
		Method:    MethodNone,
		Err:       "no enabled OCR provider detected a price in the image",
	}, nil
}

// enabledProviders snapshots the provider chain under the read lock so a
// concurrent Configure cannot change an in-flight recognition.
func (h *Hybrid) enabledProviders() []Provider {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Provider, 0, len(h.providers))
	for _, p := range h.providers {
		if h.enabled[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

// buildResult converts a provider recognition into a caller result.
// Structured providers win with their first price; text providers win
// when the parser finds at least one valid price.
func (h *Hybrid) buildResult(p Provider, rec *Recognition) (*Result, bool) {
	if rec == nil {
		return nil, false
	}

	if len(rec.Prices) > 0 {
		prices := dedupePrices(rec.Prices)
		best := prices[0]
		return &Result{
			Price:       &best,
			AllPrices:   prices,
			Text:        rec.Text,
			Confidence:  rec.Confidence,
			Method:      p.Name(),
			ProductName: rec.ProductName,
		}, true
	}

	best, ok := price.FindMostLikelyPrice(rec.Text)
	if !ok {
		return nil, false
	}
	all := price.AllValidPrices(rec.Text)
	if all == nil {
		all = []float64{}
	}
	return &Result{
		Price:       &best,
		AllPrices:   all,
		Text:        rec.Text,
		Confidence:  rec.Confidence,
		Method:      p.Name(),
		ProductName: rec.ProductName,
	}, true
}
