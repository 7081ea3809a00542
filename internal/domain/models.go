// Package domain provides core domain models and types shared by the ledger,
// the aggregator, the strategy comparator and the settlement engine.
package domain

import (
	"regexp"
	"strings"
	"time"
)

// Holding is one owned position, merged by normalized symbol.
// Invariants: Quantity >= 0, CostBasis >= 0.
type Holding struct {
	ID           string     `json:"id"`
	Symbol       string     `json:"symbol"`
	DisplayName  string     `json:"display_name"`
	AssetClass   AssetClass `json:"asset_class"`
	Quantity     float64    `json:"quantity"`
	CostBasis    float64    `json:"cost_basis"`    // weighted-average purchase price per unit
	CurrentPrice float64    `json:"current_price"` // last known market price per unit
	LastUpdated  time.Time  `json:"last_updated"`
}

// MarketValue returns quantity × current price.
func (h Holding) MarketValue() float64 { return h.Quantity * h.CurrentPrice }

// Cost returns quantity × cost basis.
func (h Holding) Cost() float64 { return h.Quantity * h.CostBasis }

// LedgerState is the read-only view of a ledger: all holdings, the cash balance and
// the cumulative realized scalars (losses stored as positive magnitudes).
type LedgerState struct {
	Holdings       []Holding `json:"holdings"`
	CashBalance    float64   `json:"cash_balance"`
	RealizedProfit float64   `json:"realized_profit"`
	RealizedLoss   float64   `json:"realized_loss"`
}

// TargetStrategy maps each asset class to a target percentage of total value.
// MaxDeviation is a relative drift threshold in percent.
type TargetStrategy struct {
	Allocations  map[AssetClass]float64 `json:"allocations"`
	MaxDeviation float64                `json:"max_deviation"`
}

// Target returns the target percentage for class, zero when unset.
func (s TargetStrategy) Target(class AssetClass) float64 {
	return s.Allocations[class]
}

// DefaultStrategy returns the built-in "smart money" allocation.
func DefaultStrategy() TargetStrategy {
	return TargetStrategy{
		Allocations: map[AssetClass]float64{
			AssetClassQuantFund: 50,
			AssetClassGold:      20,
			AssetClassBond:      15,
			AssetClassNasdaq100: 10,
			AssetClassBitcoin:   0,
			AssetClassCash:      5,
		},
		MaxDeviation: 15,
	}
}

// SettlementConfig parameterises the profit-sharing and guarantee formula.
// All values are percentages.
type SettlementConfig struct {
	ProfitThreshold1   float64 `json:"profit_threshold_1"`
	ProfitThreshold2   float64 `json:"profit_threshold_2"`
	SharingRate1       float64 `json:"sharing_rate_1"`
	SharingRate2       float64 `json:"sharing_rate_2"`
	GuaranteeThreshold float64 `json:"guarantee_threshold"`
}

// DefaultSettlementConfig returns the 3%/5% brackets at 20%/50% with a 3% guarantee.
func DefaultSettlementConfig() SettlementConfig {
	return SettlementConfig{
		ProfitThreshold1:   3,
		ProfitThreshold2:   5,
		SharingRate1:       20,
		SharingRate2:       50,
		GuaranteeThreshold: 3,
	}
}

// Snapshot is the complete persisted state handed to a SnapshotStore.
type Snapshot struct {
	Ledger     LedgerState      `json:"ledger"`
	Strategy   TargetStrategy   `json:"strategy"`
	Settlement SettlementConfig `json:"settlement"`
	SavedAt    time.Time        `json:"saved_at"`
}

// TypeDetail is the per-asset-class breakdown of a summary.
type TypeDetail struct {
	Value         float64 `json:"value"`
	Cost          float64 `json:"cost"`
	Return        float64 `json:"return"`
	ReturnPercent float64 `json:"return_percent"`
}

// PortfolioSummary is derived from a LedgerState and never stored.
type PortfolioSummary struct {
	TotalValue         float64                   `json:"total_value"`
	TotalCost          float64                   `json:"total_cost"`
	TotalReturn        float64                   `json:"total_return"`
	TotalReturnPercent float64                   `json:"total_return_percent"`
	UnrealizedReturn   float64                   `json:"unrealized_return"`
	CashBalance        float64                   `json:"cash_balance"`
	RealizedProfit     float64                   `json:"realized_profit"`
	RealizedLoss       float64                   `json:"realized_loss"`
	Allocation         map[AssetClass]float64    `json:"allocation"`
	TypeDetails        map[AssetClass]TypeDetail `json:"type_details"`
}

// PriceQuote is what a price lookup resolves a symbol to.
type PriceQuote struct {
	Symbol string    `json:"symbol"`
	Name   string    `json:"name"`
	Price  float64   `json:"price"`
	Source string    `json:"source"`
	AsOf   time.Time `json:"as_of"`
}

var exchangePrefix = regexp.MustCompile(`(?i)^(sh|sz|of)(\d)`)

// NormalizeSymbol strips a leading exchange prefix (sh, sz, of) in front of a numeric
// code, trims whitespace and upper-cases the result. Normalized symbols are the merge
// key of the ledger.
func NormalizeSymbol(symbol string) string {
	s := strings.TrimSpace(symbol)
	s = exchangePrefix.ReplaceAllString(s, "$2")
	return strings.ToUpper(strings.TrimSpace(s))
}
