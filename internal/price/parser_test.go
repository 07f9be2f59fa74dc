package price

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{name: "currency with grouping and decimals", input: "$1.234,56", want: 1234.56, ok: true},
		{name: "grouping and decimals without currency", input: "1.234,56", want: 1234.56, ok: true},
		{name: "comma decimals only", input: "1234,56", want: 1234.56, ok: true},
		{name: "single dot with three digits is thousands", input: "3.429", want: 3429, ok: true},
		{name: "single dot with two digits is decimal", input: "3.50", want: 3.5, ok: true},
		{name: "single dot with one digit is decimal", input: "3.5", want: 3.5, ok: true},
		{name: "multiple dots are all thousands", input: "1.234.5", want: 12345, ok: true},
		{name: "plain integer", input: "1234", want: 1234, ok: true},
		{name: "currency with spaces", input: "$ 123", want: 123, ok: true},
		{name: "lower bound inclusive", input: "1", want: 1, ok: true},
		{name: "upper bound inclusive", input: "999999", want: 999999, ok: true},
		{name: "below lower bound", input: "0", ok: false},
		{name: "above upper bound", input: "1000000", ok: false},
		{name: "fraction below one", input: "0,99", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "currency only", input: "$", ok: false},
		{name: "not a number", input: "abc", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePrice(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNormalizePriceRoundTrip(t *testing.T) {
	// Formatting any in-range integer and normalizing it must give the
	// integer back exactly.
	values := []int{1, 2, 9, 10, 99, 100, 999, 1000, 9999, 12345, 99999, 100000, 500000, 999999}
	for n := 7; n < 999999; n = n*3 + 1 {
		values = append(values, n)
	}

	for _, n := range values {
		got, ok := NormalizePrice(fmt.Sprintf("%d", n))
		require.True(t, ok, "n=%d", n)
		assert.Equal(t, float64(n), got, "n=%d", n)
	}
}

func TestExtractPricesOrdering(t *testing.T) {
	candidates := ExtractPrices("Total $1.234,56 antes $999")

	require.Len(t, candidates, 2)
	assert.Contains(t, candidates[0].Raw, "1.234,56")
	assert.InDelta(t, 1234.56, candidates[0].Value, 1e-9)
	assert.Contains(t, candidates[1].Raw, "999")
	assert.InDelta(t, 999, candidates[1].Value, 1e-9)
	assert.Less(t, candidates[0].Position, candidates[1].Position)
}

func TestExtractPricesClaimedSpans(t *testing.T) {
	// The loose bare-number pattern must not re-match fragments of a
	// price already claimed by a more specific pattern.
	candidates := ExtractPrices("$1.234,56")

	require.Len(t, candidates, 1)
	assert.InDelta(t, 1234.56, candidates[0].Value, 1e-9)
}

func TestExtractPricesDeduplication(t *testing.T) {
	// Same value through two different patterns yields one candidate;
	// the first occurrence keeps the position.
	candidates := ExtractPrices("$999 cuesta 999")

	require.Len(t, candidates, 1)
	assert.InDelta(t, 999, candidates[0].Value, 1e-9)
	assert.Equal(t, 0, candidates[0].Position)
}

func TestExtractPricesOCRConfusion(t *testing.T) {
	// OCR digit look-alikes are rewritten before matching: l->1, S->5, O->0.
	candidates := ExtractPrices("$lSO")

	require.Len(t, candidates, 1)
	assert.InDelta(t, 150, candidates[0].Value, 1e-9)
}

func TestExtractPricesNoDigits(t *testing.T) {
	assert.Empty(t, ExtractPrices("precio de hoy"))
	assert.Empty(t, ExtractPrices(""))
}

func TestExtractPricesIgnoresLongDigitRuns(t *testing.T) {
	// Barcodes and product codes exceed the 4-digit bare pattern and
	// have no separators; they must not produce candidates.
	assert.Empty(t, ExtractPrices("7791234567890"))
}

func TestFindMostLikelyPrice(t *testing.T) {
	t.Run("largest plausible wins", func(t *testing.T) {
		got, ok := FindMostLikelyPrice("precio 15 o 1500")
		require.True(t, ok)
		assert.InDelta(t, 1500, got, 1e-9)
	})

	t.Run("single candidate", func(t *testing.T) {
		got, ok := FindMostLikelyPrice("$450")
		require.True(t, ok)
		assert.InDelta(t, 450, got, 1e-9)
	})

	t.Run("huge values filtered out", func(t *testing.T) {
		got, ok := FindMostLikelyPrice("123.456,78 y $25")
		require.True(t, ok)
		assert.InDelta(t, 25, got, 1e-9)
	})

	t.Run("all huge falls back to first by position", func(t *testing.T) {
		got, ok := FindMostLikelyPrice("123.456,78 y 654.321,00")
		require.True(t, ok)
		assert.InDelta(t, 123456.78, got, 1e-9)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, ok := FindMostLikelyPrice("sin precio")
		assert.False(t, ok)
	})
}

func TestAllValidPrices(t *testing.T) {
	t.Run("band and ordering", func(t *testing.T) {
		// 50.000,00 sits exactly on the exclusive upper bound; $15 is in
		// band; $9 is below the one-digit pattern floor entirely.
		got := AllValidPrices("$15 1.234,56 50.000,00 $8000")
		assert.Equal(t, []float64{8000, 1234.56, 15}, got)
	})

	t.Run("lower bound inclusive", func(t *testing.T) {
		assert.Equal(t, []float64{10}, AllValidPrices("$10"))
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, AllValidPrices(""))
	})
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "T0ta1 $1.234,56", CleanText("  Total \n\t $1.234,56  "))
}
