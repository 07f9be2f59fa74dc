package ocr

import (
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annotation(text string) *visionpb.EntityAnnotation {
	return &visionpb.EntityAnnotation{Description: text}
}

func TestGoogleVisionBuildRecognition(t *testing.T) {
	p := &GoogleVisionProvider{}

	rec := p.buildRecognition([]*visionpb.EntityAnnotation{
		annotation("LECHE ENTERA\n$1.234,56\n999"),
		annotation("LECHE"),
		annotation("ENTERA"),
		annotation("$1.234,56"),
		annotation("999"),
	})

	assert.Equal(t, "LECHE ENTERA\n$1.234,56\n999", rec.Text)
	assert.Equal(t, []float64{1234.56, 999}, rec.Prices)
	assert.Equal(t, "LECHE", rec.ProductName)
	assert.InDelta(t, googleVisionBaseConfidence, rec.Confidence, 1e-9)
}

func TestGoogleVisionBuildRecognitionDeduplicates(t *testing.T) {
	p := &GoogleVisionProvider{}

	rec := p.buildRecognition([]*visionpb.EntityAnnotation{
		annotation("$450 450"),
		annotation("$450"),
		annotation("450"),
	})

	assert.Equal(t, []float64{450}, rec.Prices)
}

func TestGoogleVisionProductNameFallsBackToFirstLine(t *testing.T) {
	p := &GoogleVisionProvider{}

	// All word detections are price-shaped, so the product name comes
	// from the first line of the full text.
	rec := p.buildRecognition([]*visionpb.EntityAnnotation{
		annotation("Yerba 1kg\n$3.429"),
		annotation("$3.429"),
	})

	assert.Equal(t, "Yerba 1kg", rec.ProductName)
	require.Len(t, rec.Prices, 1)
	assert.InDelta(t, 3429, rec.Prices[0], 1e-9)
}

func TestGoogleVisionEmptyAnnotations(t *testing.T) {
	p := &GoogleVisionProvider{}

	rec := p.buildRecognition(nil)
	assert.Empty(t, rec.Text)
	assert.Empty(t, rec.Prices)
}

func TestLooksLikePrice(t *testing.T) {
	assert.True(t, looksLikePrice("$1.234,56"))
	assert.True(t, looksLikePrice("999"))
	assert.False(t, looksLikePrice("LECHE"))
	assert.False(t, looksLikePrice("1kg"))
	assert.False(t, looksLikePrice("$"))
}

func TestClassifyGoogleError(t *testing.T) {
	assert.ErrorIs(t, classifyGoogleError(assert.AnError), ErrTransport)
}
