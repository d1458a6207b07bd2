package reporting

import "fmt"

// FormatChartDollar renders a chart series value: width 19, 4 decimals. Chart
// and table precision differ on purpose; the two consumers have never agreed
// on one contract.
func FormatChartDollar(v float64) string {
	return fmt.Sprintf("%19.4f", v)
}

// FormatTableDollar renders a tabular currency value with 2 decimals.
func FormatTableDollar(v float64) string {
	return fmt.Sprintf("%0.2f", v)
}

// Ratios are the derived financial columns of the dashboard widget.
type Ratios struct {
	GrossIncome string
	GrossMargin string
	ECPM        string
}

// DeriveRatios computes gross income, gross margin percent and eCPM. Margin
// and eCPM are literal zero whenever gross income is not positive, rather
// than computed, so non-positive income never produces division artifacts.
func DeriveRatios(revenue, cost float64) Ratios {
	gross := revenue - cost
	r := Ratios{
		GrossIncome: FormatTableDollar(gross),
		GrossMargin: "0",
		ECPM:        "0",
	}
	if gross > 0 {
		r.GrossMargin = fmt.Sprintf("%.0f", 100*gross/revenue)
		r.ECPM = fmt.Sprintf("%.4f", gross/1000)
	}
	return r
}
