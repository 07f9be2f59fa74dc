package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrOCRTestProvider(t *testing.T, handler http.HandlerFunc) *TrOCRProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewTrOCRProvider(TrOCRConfig{
		APIKey:     "hf_test",
		Endpoint:   srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestTrOCRRecognizeArrayResponse(t *testing.T) {
	var gotAuth string
	var gotBody []byte

	p := newTrOCRTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`[{"generated_text":" $1.500 "}]`))
	})

	img := testImage()
	rec, err := p.RecognizeText(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, "$1.500", rec.Text)
	assert.InDelta(t, trocrConfidence, rec.Confidence, 1e-9)
	assert.Equal(t, "Bearer hf_test", gotAuth)
	assert.Equal(t, img.Data, gotBody, "image must be posted as the raw body")
}

func TestTrOCRRecognizeObjectResponse(t *testing.T) {
	p := newTrOCRTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generated_text":"$2.000"}`))
	})

	rec, err := p.RecognizeText(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "$2.000", rec.Text)
}

func TestTrOCREmptyGeneration(t *testing.T) {
	p := newTrOCRTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	rec, err := p.RecognizeText(context.Background(), testImage())
	require.NoError(t, err)
	assert.Empty(t, rec.Text)
	assert.Zero(t, rec.Confidence)
}

func TestTrOCRModelWarmingUp(t *testing.T) {
	p := newTrOCRTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.RecognizeText(context.Background(), testImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, 20*time.Second, RetryAfterHint(err))
}

func TestTrOCRInvalidAPIKey(t *testing.T) {
	p := newTrOCRTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.RecognizeText(context.Background(), testImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestTrOCRDefaults(t *testing.T) {
	p, err := NewTrOCRProvider(TrOCRConfig{APIKey: "hf_test"})
	require.NoError(t, err)

	assert.Equal(t, MethodTrOCR, p.Name())
	assert.Contains(t, p.config.Endpoint, DefaultTrOCRModel)
}

func TestTrOCRRequiresAPIKey(t *testing.T) {
	_, err := NewTrOCRProvider(TrOCRConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
}
