package portfolio

import (
	"math"
	"sort"

	"github.com/aristath/alphaseeker/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Summarize derives the point-in-time portfolio summary from a ledger state.
//
// It is a pure function: holdings are visited in symbol order and summed per class with
// gonum's floats.Sum, so two calls on the same state produce bit-identical results.
// Every asset class is present in Allocation and TypeDetails, zero when empty.
func Summarize(state domain.LedgerState) domain.PortfolioSummary {
	holdings := make([]domain.Holding, len(state.Holdings))
	copy(holdings, state.Holdings)
	sort.SliceStable(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	values := make(map[domain.AssetClass][]float64)
	costs := make(map[domain.AssetClass][]float64)
	for _, h := range holdings {
		values[h.AssetClass] = append(values[h.AssetClass], h.MarketValue())
		costs[h.AssetClass] = append(costs[h.AssetClass], h.Cost())
	}
	values[domain.AssetClassCash] = append(values[domain.AssetClassCash], state.CashBalance)
	costs[domain.AssetClassCash] = append(costs[domain.AssetClassCash], state.CashBalance)

	classes := domain.AllAssetClasses()
	details := make(map[domain.AssetClass]domain.TypeDetail, len(classes))
	classValues := make([]float64, 0, len(classes))
	classCosts := make([]float64, 0, len(classes))
	var holdingValues, holdingCosts []float64

	for _, class := range classes {
		value := floats.Sum(values[class])
		cost := floats.Sum(costs[class])
		ret := value - cost
		details[class] = domain.TypeDetail{
			Value:         value,
			Cost:          cost,
			Return:        ret,
			ReturnPercent: percentOf(ret, cost),
		}
		classValues = append(classValues, value)
		classCosts = append(classCosts, cost)
		if class != domain.AssetClassCash {
			holdingValues = append(holdingValues, value)
			holdingCosts = append(holdingCosts, cost)
		}
	}

	totalValue := floats.Sum(classValues)
	totalCost := floats.Sum(classCosts)
	unrealized := floats.Sum(holdingValues) - floats.Sum(holdingCosts)
	totalReturn := unrealized + state.RealizedProfit - state.RealizedLoss

	allocation := make(map[domain.AssetClass]float64, len(classes))
	for i, class := range classes {
		allocation[class] = percentOf(classValues[i], totalValue)
	}

	return domain.PortfolioSummary{
		TotalValue:         totalValue,
		TotalCost:          totalCost,
		TotalReturn:        totalReturn,
		TotalReturnPercent: percentOf(totalReturn, totalCost),
		UnrealizedReturn:   unrealized,
		CashBalance:        state.CashBalance,
		RealizedProfit:     state.RealizedProfit,
		RealizedLoss:       state.RealizedLoss,
		Allocation:         allocation,
		TypeDetails:        details,
	}
}

// percentOf returns part/whole*100, or 0 when whole is not positive.
func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// PerformanceBar is one row of the per-class performance chart.
type PerformanceBar struct {
	AssetClass    domain.AssetClass `json:"asset_class"`
	Label         string            `json:"label"`
	Value         float64           `json:"value"`
	Cost          float64           `json:"cost"`
	Return        float64           `json:"return"`
	ReturnPercent float64           `json:"return_percent"`
}

// PerformanceBars shapes the summary into chart rows: classes holding value or with a
// return beyond one unit, sorted by return descending (ties in enum order).
func PerformanceBars(summary domain.PortfolioSummary) []PerformanceBar {
	bars := make([]PerformanceBar, 0, len(summary.TypeDetails))
	for _, class := range domain.AllAssetClasses() {
		d := summary.TypeDetails[class]
		if d.Value <= 0 && math.Abs(d.Return) <= 1 {
			continue
		}
		bars = append(bars, PerformanceBar{
			AssetClass:    class,
			Label:         class.Label(),
			Value:         d.Value,
			Cost:          d.Cost,
			Return:        d.Return,
			ReturnPercent: d.ReturnPercent,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Return > bars[j].Return })
	return bars
}

// HoldingView is a holding with its derived market figures.
type HoldingView struct {
	domain.Holding
	MarketValue          float64 `json:"market_value"`
	TotalCost            float64 `json:"total_cost"`
	UnrealizedPnL        float64 `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64 `json:"unrealized_pnl_percent"`
	Weight               float64 `json:"weight"` // percent of total portfolio value
}

// HoldingViews derives per-holding market value, cost and unrealized P&L, in ledger order.
func HoldingViews(state domain.LedgerState) []HoldingView {
	values := make([]float64, 0, len(state.Holdings)+1)
	for _, h := range state.Holdings {
		values = append(values, h.MarketValue())
	}
	values = append(values, state.CashBalance)
	total := floats.Sum(values)

	views := make([]HoldingView, 0, len(state.Holdings))
	for _, h := range state.Holdings {
		value := h.MarketValue()
		cost := h.Cost()
		views = append(views, HoldingView{
			Holding:              h,
			MarketValue:          value,
			TotalCost:            cost,
			UnrealizedPnL:        value - cost,
			UnrealizedPnLPercent: percentOf(value-cost, cost),
			Weight:               percentOf(value, total),
		})
	}
	return views
}
