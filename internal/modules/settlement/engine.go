// Package settlement evaluates the tiered profit-sharing and downside-guarantee formula
// against a portfolio summary. It is stateless and never touches realized P&L or cash.
package settlement

import (
	"math"

	"github.com/aristath/alphaseeker/internal/domain"
)

// Result is the outcome of one settlement evaluation. All amounts are >= 0.
type Result struct {
	TotalCost   float64 `json:"total_cost"`
	TotalValue  float64 `json:"total_value"`
	TotalReturn float64 `json:"total_return"`
	ReturnRate  float64 `json:"return_rate"` // percent

	Bracket1Amount float64 `json:"bracket1_amount"`
	Bracket2Amount float64 `json:"bracket2_amount"`
	SharingAmount  float64 `json:"sharing_amount"`

	TargetValue        float64 `json:"target_value"`
	GuaranteeAmount    float64 `json:"guarantee_amount"`
	GuaranteeTriggered bool    `json:"guarantee_triggered"`

	Config domain.SettlementConfig `json:"config"`
}

// Compute evaluates the settlement for a summary.
//
// Bracket 1 shares r1 of the return between t1 and t2 of cost; bracket 2 shares r2 of the
// return above t2. The guarantee owes the shortfall of total value below cost grown by
// the guarantee threshold. Thresholds are not reordered or validated here.
func Compute(summary domain.PortfolioSummary, cfg domain.SettlementConfig) Result {
	return compute(summary.TotalCost, summary.TotalValue, summary.TotalReturn, summary.TotalReturnPercent, cfg)
}

func compute(totalCost, totalValue, totalReturn, returnPercent float64, cfg domain.SettlementConfig) Result {
	returnRate := returnPercent / 100
	t1 := cfg.ProfitThreshold1 / 100
	t2 := cfg.ProfitThreshold2 / 100
	r1 := cfg.SharingRate1 / 100
	r2 := cfg.SharingRate2 / 100

	var bracket1, bracket2 float64
	if returnRate > t1 {
		bracket1 = math.Min(totalReturn-totalCost*t1, totalCost*(t2-t1)) * r1
	}
	if returnRate > t2 {
		bracket2 = (totalReturn - totalCost*t2) * r2
	}
	sharing := math.Max(0, bracket1+bracket2)

	targetValue := totalCost * (1 + cfg.GuaranteeThreshold/100)
	guarantee := math.Max(0, targetValue-totalValue)

	return Result{
		TotalCost:          totalCost,
		TotalValue:         totalValue,
		TotalReturn:        totalReturn,
		ReturnRate:         returnPercent,
		Bracket1Amount:     bracket1,
		Bracket2Amount:     bracket2,
		SharingAmount:      sharing,
		TargetValue:        targetValue,
		GuaranteeAmount:    guarantee,
		GuaranteeTriggered: guarantee > 0,
		Config:             cfg,
	}
}

// Scenario evaluates the formula for a hypothetical cost and return, deriving the value
// as cost plus return. Used by the "what if" calculator.
func Scenario(totalCost, totalReturn float64, cfg domain.SettlementConfig) Result {
	var pct float64
	if totalCost > 0 {
		pct = totalReturn / totalCost * 100
	}
	return compute(totalCost, totalCost+totalReturn, totalReturn, pct, cfg)
}
