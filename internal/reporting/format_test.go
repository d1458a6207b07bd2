package reporting

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatChartDollar(t *testing.T) {
	assert.Equal(t, "            15.0000", FormatChartDollar(15))
	assert.Equal(t, "           -10.2500", FormatChartDollar(-10.25))
	assert.Equal(t, "             0.0000", FormatChartDollar(0))
}

func TestFormatTableDollar(t *testing.T) {
	assert.Equal(t, "15.00", FormatTableDollar(15))
	assert.Equal(t, "-10.25", FormatTableDollar(-10.25))
	assert.Equal(t, "0.00", FormatTableDollar(0))
	assert.Equal(t, "2.35", FormatTableDollar(2.346))
}

func TestFormatDollarRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 15.0, -3.14159, 1234.56789, 0.005} {
		chart := strings.TrimSpace(FormatChartDollar(v))
		parsed, err := strconv.ParseFloat(chart, 64)
		require.NoError(t, err)
		assert.Equal(t, chart, strings.TrimSpace(FormatChartDollar(parsed)))

		table := FormatTableDollar(v)
		parsed, err = strconv.ParseFloat(table, 64)
		require.NoError(t, err)
		assert.Equal(t, table, FormatTableDollar(parsed))
	}
}

func TestDeriveRatiosPositiveIncome(t *testing.T) {
	r := DeriveRatios(200, 50)

	assert.Equal(t, "150.00", r.GrossIncome)
	assert.Equal(t, "75", r.GrossMargin)
	assert.Equal(t, "0.1500", r.ECPM)
}

func TestDeriveRatiosNonPositiveIncome(t *testing.T) {
	cases := []struct {
		name    string
		revenue float64
		cost    float64
	}{
		{"zero income", 100, 100},
		{"negative income", 50, 100},
		{"both zero", 0, 0},
		{"negative revenue", -20, 5},
		{"negative cost exceeds revenue", -20, -5},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			r := DeriveRatios(tt.revenue, tt.cost)
			assert.Equal(t, "0", r.GrossMargin)
			assert.Equal(t, "0", r.ECPM)
		})
	}
}

func TestDeriveRatiosNegativeCostPositiveIncome(t *testing.T) {
	// A refunded cost can push income positive even with low revenue.
	r := DeriveRatios(10, -10)

	assert.Equal(t, "20.00", r.GrossIncome)
	assert.Equal(t, "200", r.GrossMargin)
	assert.Equal(t, "0.0200", r.ECPM)
}
