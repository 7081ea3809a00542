package testing

import (
	"time"

	"github.com/aristath/alphaseeker/internal/domain"
)

// FixtureTime is the fixed timestamp used by fixtures
var FixtureTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// NewHoldingFixtures returns one holding per non-cash asset class except bitcoin
func NewHoldingFixtures() []domain.Holding {
	return []domain.Holding{
		{
			ID:           "hld-gold",
			Symbol:       "518880",
			DisplayName:  "华安黄金ETF",
			AssetClass:   domain.AssetClassGold,
			Quantity:     1000,
			CostBasis:    4.2,
			CurrentPrice: 5.0,
			LastUpdated:  FixtureTime,
		},
		{
			ID:           "hld-quant",
			Symbol:       "017641",
			DisplayName:  "量化增强",
			AssetClass:   domain.AssetClassQuantFund,
			Quantity:     5000,
			CostBasis:    1.0,
			CurrentPrice: 1.1,
			LastUpdated:  FixtureTime,
		},
		{
			ID:           "hld-bond",
			Symbol:       "511010",
			DisplayName:  "国债ETF",
			AssetClass:   domain.AssetClassBond,
			Quantity:     2000,
			CostBasis:    1.25,
			CurrentPrice: 1.2,
			LastUpdated:  FixtureTime,
		},
		{
			ID:           "hld-qqq",
			Symbol:       "QQQ",
			DisplayName:  "Invesco QQQ",
			AssetClass:   domain.AssetClassNasdaq100,
			Quantity:     2,
			CostBasis:    400,
			CurrentPrice: 445,
			LastUpdated:  FixtureTime,
		},
	}
}

// NewSnapshotFixture returns a complete snapshot built on NewHoldingFixtures
func NewSnapshotFixture() domain.Snapshot {
	return domain.Snapshot{
		Ledger: domain.LedgerState{
			Holdings:       NewHoldingFixtures(),
			CashBalance:    1500,
			RealizedProfit: 320,
			RealizedLoss:   45.5,
		},
		Strategy:   domain.DefaultStrategy(),
		Settlement: domain.DefaultSettlementConfig(),
		SavedAt:    FixtureTime,
	}
}
