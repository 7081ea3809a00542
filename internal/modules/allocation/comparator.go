// Package allocation compares the current allocation of a portfolio against its target
// strategy. Everything here is advisory: nothing mutates the ledger.
package allocation

import (
	"encoding/json"
	"math"

	"github.com/aristath/alphaseeker/internal/domain"
)

// Status is the traffic-light severity of a deviation.
type Status string

const (
	StatusOnTarget Status = "on_target" // green
	StatusWarning  Status = "warning"   // yellow
	StatusCritical Status = "critical"  // red
)

// Deviation is one row of the deviation report.
type Deviation struct {
	AssetClass domain.AssetClass `json:"asset_class"`
	Label      string            `json:"label"`
	CurrentPct float64           `json:"current_pct"`
	TargetPct  float64           `json:"target_pct"`
	// RelativeDeviation is |current - target| / target * 100; +Inf when the target is
	// zero but the class holds value.
	RelativeDeviation float64 `json:"relative_deviation"`
	Status            Status  `json:"status"`
	CurrentValue      float64 `json:"current_value"`
	TargetValue       float64 `json:"target_value"`
	// RebalanceAmount is target value minus current value: positive means buy.
	RebalanceAmount float64 `json:"rebalance_amount"`
}

// Unbounded reports whether the relative deviation is infinite.
func (d Deviation) Unbounded() bool {
	return math.IsInf(d.RelativeDeviation, 1)
}

// MarshalJSON encodes an infinite deviation as null plus "unbounded": true.
func (d Deviation) MarshalJSON() ([]byte, error) {
	type plain Deviation
	out := struct {
		plain
		RelativeDeviation *float64 `json:"relative_deviation"`
		Unbounded         bool     `json:"unbounded"`
	}{plain: plain(d), Unbounded: d.Unbounded()}
	if !out.Unbounded {
		v := d.RelativeDeviation
		out.RelativeDeviation = &v
	}
	return json.Marshal(out)
}

// Report is the full comparator output.
type Report struct {
	Deviations     []Deviation `json:"deviations"`
	MaxDeviation   float64     `json:"max_deviation"`
	TotalValue     float64     `json:"total_value"`
	CashBalance    float64     `json:"cash_balance"`
	TargetCash     float64     `json:"target_cash"`
	InvestableCash float64     `json:"investable_cash"`
}

// Evaluate compares the summary's allocation with the strategy, one row per asset class
// in enum order.
func Evaluate(summary domain.PortfolioSummary, strategy domain.TargetStrategy) Report {
	classes := domain.AllAssetClasses()
	rows := make([]Deviation, 0, len(classes))

	for _, class := range classes {
		current := summary.Allocation[class]
		target := strategy.Target(class)
		rel := RelativeDeviation(current, target)
		targetValue := summary.TotalValue * target / 100
		currentValue := summary.TypeDetails[class].Value

		rows = append(rows, Deviation{
			AssetClass:        class,
			Label:             class.Label(),
			CurrentPct:        current,
			TargetPct:         target,
			RelativeDeviation: rel,
			Status:            Classify(rel, strategy.MaxDeviation),
			CurrentValue:      currentValue,
			TargetValue:       targetValue,
			RebalanceAmount:   targetValue - currentValue,
		})
	}

	targetCash := TargetCash(summary, strategy)
	return Report{
		Deviations:     rows,
		MaxDeviation:   strategy.MaxDeviation,
		TotalValue:     summary.TotalValue,
		CashBalance:    summary.CashBalance,
		TargetCash:     targetCash,
		InvestableCash: math.Max(0, summary.CashBalance-targetCash),
	}
}

// RelativeDeviation returns |current - target| / target * 100. A zero target yields
// +Inf when current is positive and 0 otherwise.
func RelativeDeviation(current, target float64) float64 {
	if target > 0 {
		return math.Abs(current-target) / target * 100
	}
	if current > 0 {
		return math.Inf(1)
	}
	return 0
}

// Classify maps a relative deviation to a status: within maxDeviation is on target,
// within twice maxDeviation is a warning, beyond is critical.
func Classify(relativeDeviation, maxDeviation float64) Status {
	switch {
	case relativeDeviation <= maxDeviation:
		return StatusOnTarget
	case relativeDeviation <= 2*maxDeviation:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// TargetCash is the cash amount the strategy wants held.
func TargetCash(summary domain.PortfolioSummary, strategy domain.TargetStrategy) float64 {
	return summary.TotalValue * strategy.Target(domain.AssetClassCash) / 100
}

// InvestableCash is cash above the strategic cash target, never negative.
func InvestableCash(summary domain.PortfolioSummary, strategy domain.TargetStrategy) float64 {
	return math.Max(0, summary.CashBalance-TargetCash(summary, strategy))
}
