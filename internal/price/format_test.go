package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1234", FormatPrice(1234))
	assert.Equal(t, "1234.5", FormatPrice(1234.5))
	assert.Equal(t, "1234.56", FormatPrice(1234.559))
	assert.Equal(t, "10", FormatPrice(9.999))
	assert.Equal(t, "0", FormatPrice(0))
}

func TestFormatTotal(t *testing.T) {
	assert.Equal(t, "5.00", FormatTotal(5))
	assert.Equal(t, "1234.50", FormatTotal(1234.5))
}

func TestFormatPriceAR(t *testing.T) {
	assert.Equal(t, "1.234,56", FormatPriceAR(1234.56))
	assert.Equal(t, "999,00", FormatPriceAR(999))
	assert.Equal(t, "1.234.567,80", FormatPriceAR(1234567.8))
	assert.Equal(t, "3,50", FormatPriceAR(3.5))
}

func TestFormatTotalAR(t *testing.T) {
	assert.Equal(t, "0,00", FormatTotalAR(0))
	assert.Equal(t, "12.345,68", FormatTotalAR(12345.678))
}
