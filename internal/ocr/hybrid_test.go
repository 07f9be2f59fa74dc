package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider scripts one provider in the chain and counts invocations.
type fakeProvider struct {
	name  string
	rec   *Recognition
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) RecognizeText(ctx context.Context, img Image) (*Recognition, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func testImage() Image {
	return Image{Data: []byte("not-really-a-jpeg"), MIME: "image/jpeg"}
}

func TestRecognizePriceFallthrough(t *testing.T) {
	failing := &fakeProvider{name: "broken", err: errors.New("connection refused")}
	empty := &fakeProvider{name: "blind", rec: &Recognition{Text: ""}}
	working := &fakeProvider{name: "sharp", rec: &Recognition{Text: "OFERTA $1.234,56", Confidence: 85}}

	h := NewHybrid(failing, empty, working)

	result, err := h.RecognizePrice(context.Background(), testImage())
	require.NoError(t, err)

	require.NotNil(t, result.Price)
	assert.InDelta(t, 1234.56, *result.Price, 1e-9)
	assert.Equal(t, "sharp", result.Method)
	assert.InDelta(t, 85, result.Confidence, 1e-9)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 1, working.calls)
}

func TestRecognizePriceTerminalFailure(t *testing.T) {
	failing := &fakeProvider{name: "broken", err: errors.New("boom")}
	empty := &fakeProvider{name: "blind", rec: &Recognition{Text: "--- precio --- $"}}

	h := NewHybrid(failing, empty)

	result, err := h.RecognizePrice(context.Background(), testImage())
	require.NoError(t, err)

	assert.Nil(t, result.Price)
	assert.Equal(t, MethodNone, result.Method)
	assert.NotNil(t, result.AllPrices)
	assert.Empty(t, result.AllPrices)
	assert.NotEmpty(t, result.Err)
}

func TestRecognizePriceStructuredShortCircuit(t *testing.T) {
	structured := &fakeProvider{name: "vision", rec: &Recognition{
		Text:        "LECHE ENTERA\n$1.250",
		Confidence:  95,
		Prices:      []float64{1250, 980, 1250},
		ProductName: "LECHE",
	}}
	next := &fakeProvider{name: "fallback", rec: &Recognition{Text: "$99"}}

	h := NewHybrid(structured, next)

	result, err := h.RecognizePrice(context.Background(), testImage())
	require.NoError(t, err)

	require.NotNil(t, result.Price)
	assert.InDelta(t, 1250, *result.Price, 1e-9)
	assert.Equal(t, []float64{1250, 980}, result.AllPrices)
	assert.Equal(t, "vision", result.Method)
	assert.Equal(t, "LECHE", result.ProductName)
	assert.Equal(t, 0, next.calls, "later providers must not run after a structured hit")
}

func TestRecognizePriceTextAllPricesBand(t *testing.T) {
	p := &fakeProvider{name: "text", rec: &Recognition{Text: "antes $8.000 ahora $4.500 codigo 7"}}

	h := NewHybrid(p)

	result, err := h.RecognizePrice(context.Background(), testImage())
	require.NoError(t, err)

	require.NotNil(t, result.Price)
	assert.InDelta(t, 8000, *result.Price, 1e-9)
	assert.Equal(t, []float64{8000, 4500}, result.AllPrices)
}

func TestRecognizePriceNoImage(t *testing.T) {
	h := NewHybrid(&fakeProvider{name: "any"})

	_, err := h.RecognizePrice(context.Background(), Image{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestConfigureIdempotent(t *testing.T) {
	skipped := &fakeProvider{name: "paid", rec: &Recognition{Text: "$500"}}
	used := &fakeProvider{name: "free", rec: &Recognition{Text: "$500"}}

	h := NewHybrid(skipped, used)

	// Disabling twice must leave the provider disabled, not toggle it.
	h.Configure(HybridOptions{Enable: map[string]bool{"paid": false}})
	h.Configure(HybridOptions{Enable: map[string]bool{"paid": false}})

	result, err := h.RecognizePrice(context.Background(), testImage())
	require.NoError(t, err)

	assert.Equal(t, "free", result.Method)
	assert.Equal(t, 0, skipped.calls)
	assert.Equal(t, 1, used.calls)
}

func TestConfigureUnknownProviderIgnored(t *testing.T) {
	h := NewHybrid(&fakeProvider{name: "real"})

	h.Configure(HybridOptions{Enable: map[string]bool{"imaginary": true}})

	status := h.Status()
	assert.NotContains(t, status.Providers, "imaginary")
	assert.Equal(t, "enabled", status.Providers["real"])
}

func TestStatus(t *testing.T) {
	h := NewHybrid(
		&fakeProvider{name: "first"},
		&fakeProvider{name: "second"},
	)
	threshold := 70.0
	h.Configure(HybridOptions{
		Enable:              map[string]bool{"second": false},
		ConfidenceThreshold: &threshold,
	})

	status := h.Status()
	assert.Equal(t, []string{"first", "second"}, status.Order)
	assert.Equal(t, "enabled", status.Providers["first"])
	assert.Equal(t, "disabled", status.Providers["second"])
	assert.InDelta(t, 70, status.ConfidenceThreshold, 1e-9)
}

func TestRetryHintLoggedNotFatal(t *testing.T) {
	warming := &fakeProvider{name: "cold", err: &RetryableError{Err: ErrServiceUnavailable, RetryAfter: 20 * time.Second}}
	working := &fakeProvider{name: "warm", rec: &Recognition{Text: "$120"}}

	h := NewHybrid(warming, working)

	result, err := h.RecognizePrice(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "warm", result.Method)
}
