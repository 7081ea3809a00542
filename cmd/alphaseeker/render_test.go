package main

import (
	"math"
	"testing"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/allocation"
	"github.com/aristath/alphaseeker/internal/modules/ledger"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/modules/settlement"
	"github.com/stretchr/testify/assert"
)

func TestSummaryMarkdown(t *testing.T) {
	state := domain.LedgerState{
		Holdings: []domain.Holding{
			{ID: "1", Symbol: "518880", DisplayName: "黄金ETF", AssetClass: domain.AssetClassGold, Quantity: 1000, CostBasis: 5, CurrentPrice: 5.5},
		},
		CashBalance:  500,
		RealizedLoss: 20,
	}

	md := summaryMarkdown(portfolio.Summarize(state))

	assert.Contains(t, md, "# Portfolio Summary")
	assert.Contains(t, md, "| 黄金 |")
	assert.Contains(t, md, "| 现金 |")
	assert.NotContains(t, md, "| 比特币 |", "empty classes are omitted")
	assert.Contains(t, md, domain.FormatCNY(6000))
}

func TestHoldingsMarkdown(t *testing.T) {
	assert.Contains(t, holdingsMarkdown(nil), "_No holdings._")

	views := portfolio.HoldingViews(domain.LedgerState{
		Holdings: []domain.Holding{
			{ID: "1", Symbol: "QQQ", DisplayName: "Nasdaq | 100", AssetClass: domain.AssetClassNasdaq100, Quantity: 2, CostBasis: 100, CurrentPrice: 110},
		},
	})
	md := holdingsMarkdown(views)

	assert.Contains(t, md, "| QQQ | Nasdaq \\| 100 | 纳斯达克100 | 2 |")
	assert.Contains(t, md, "+10.00%")
}

func TestAllocationMarkdown(t *testing.T) {
	md := allocationMarkdown(allocation.Report{
		MaxDeviation: 15,
		Deviations: []allocation.Deviation{
			{AssetClass: domain.AssetClassGold, CurrentPct: 20, TargetPct: 20, Status: allocation.StatusOnTarget},
			{AssetClass: domain.AssetClassBitcoin, CurrentPct: 5, TargetPct: 0, RelativeDeviation: math.Inf(1), Status: allocation.StatusCritical, RebalanceAmount: -500},
		},
	})

	assert.Contains(t, md, "🟢 on target")
	assert.Contains(t, md, "| 比特币 | 5.00% | 0.00% | ∞ | 🔴 critical |")
}

func TestSettlementMarkdown(t *testing.T) {
	cfg := domain.DefaultSettlementConfig()

	md := settlementMarkdown(settlement.Scenario(100000, 6000, cfg))
	assert.Contains(t, md, "**"+domain.FormatCNY(900)+"**")
	assert.NotContains(t, md, "guarantee is triggered")

	md = settlementMarkdown(settlement.Scenario(100000, -2000, cfg))
	assert.Contains(t, md, "**"+domain.FormatCNY(5000)+"**")
	assert.Contains(t, md, "guarantee is triggered")
}

func TestSellMarkdown(t *testing.T) {
	result := ledger.SellResult{Symbol: "518880", Proceeds: 1000, ExecutionPrice: 5, QuantitySold: 200, OverSell: true}

	assert.Contains(t, sellMarkdown(result, false), "# Sell preview for 518880")
	assert.Contains(t, sellMarkdown(result, false), "-force")

	result.OverSell = false
	result.Closed = true
	md := sellMarkdown(result, true)
	assert.Contains(t, md, "# Sold 518880")
	assert.Contains(t, md, "Position closed.")
}

func TestImportMarkdown(t *testing.T) {
	md := importMarkdown(portfolio.ImportResult{
		Imported: []domain.Holding{{Symbol: "518880", DisplayName: "黄金ETF", Quantity: 100, CostBasis: 4.5}},
		Skipped:  []portfolio.ImportError{{Line: 3, Text: "bad", Reason: "expected 5 fields"}},
	})

	assert.Contains(t, md, "# Imported 1 holdings")
	assert.Contains(t, md, "- 518880 黄金ETF: 100 @ 4.5000")
	assert.Contains(t, md, "- line 3 `bad`: expected 5 fields")
}

func TestRefreshMarkdown(t *testing.T) {
	md := refreshMarkdown(portfolio.RefreshResult{Requested: 3, Updated: 2, Failed: []string{"SHY"}})

	assert.Contains(t, md, "Updated 2 of 3 holdings.")
	assert.Contains(t, md, "Kept last price for: SHY")
}
