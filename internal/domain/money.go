package domain

import (
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ReportingCurrency is the single currency the portfolio is valued in.
const ReportingCurrency = money.CNY

// RoundMoney rounds a currency amount to two decimal places, half away from zero.
// Only presentation layers round; the calculation core keeps full precision.
func RoundMoney(v float64) float64 {
	return round(v, 2)
}

// RoundPercent rounds a percentage (0-100 scale) to two decimal places.
func RoundPercent(v float64) float64 {
	return round(v, 2)
}

// RoundQuantity rounds a unit quantity to four decimal places.
func RoundQuantity(v float64) float64 {
	return round(v, 4)
}

func round(v float64, places int32) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatCNY renders an amount in the reporting currency using the go-money template
// for CNY, e.g. "1,234.50 元".
func FormatCNY(v float64) string {
	minor := decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
	return money.New(minor, ReportingCurrency).Display()
}

// FormatSignedCNY renders an amount with an explicit sign for gains.
func FormatSignedCNY(v float64) string {
	if v > 0 {
		return "+" + FormatCNY(v)
	}
	return FormatCNY(v)
}

// FormatPercent renders a percentage with an explicit sign, e.g. "+6.00%".
func FormatPercent(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return fmt.Sprintf("+%s%%", d.StringFixed(2))
	}
	return fmt.Sprintf("%s%%", d.StringFixed(2))
}
