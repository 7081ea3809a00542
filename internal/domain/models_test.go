package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"sh518880":   "518880",
		"SZ159941":   "159941",
		"of017641":   "017641",
		" 518880 ":   "518880",
		"qqq":        "QQQ",
		"SHY":        "SHY",
		"ofs":        "OFS",
		"  sh600519": "600519",
		"":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSymbol(in), "input %q", in)
	}
}

func TestHoldingValues(t *testing.T) {
	h := Holding{Quantity: 10, CostBasis: 2, CurrentPrice: 2.5}

	assert.Equal(t, 25.0, h.MarketValue())
	assert.Equal(t, 20.0, h.Cost())
}

func TestDefaults(t *testing.T) {
	s := DefaultStrategy()
	var sum float64
	for _, pct := range s.Allocations {
		sum += pct
	}
	assert.Equal(t, 100.0, sum)
	assert.Equal(t, 15.0, s.MaxDeviation)
	assert.Equal(t, 0.0, s.Target(AssetClassBitcoin))
	require.NoError(t, ValidateStrategy(s))

	require.NoError(t, ValidateSettlementConfig(DefaultSettlementConfig()))
}

func TestAssetClass(t *testing.T) {
	assert.Len(t, AllAssetClasses(), 6)
	assert.NotContains(t, HoldingAssetClasses(), AssetClassCash)
	assert.False(t, AssetClass("stocks").IsValid())

	c, err := ParseAssetClass("Gold")
	require.NoError(t, err)
	assert.Equal(t, AssetClassGold, c)

	c, err = ParseAssetClass("纳斯达克100")
	require.NoError(t, err)
	assert.Equal(t, AssetClassNasdaq100, c)

	c, err = ParseAssetClass(" quant_fund ")
	require.NoError(t, err)
	assert.Equal(t, AssetClassQuantFund, c)

	_, err = ParseAssetClass("stocks")
	assert.ErrorIs(t, err, ErrUnknownAssetClass)
	_, err = ParseAssetClass("黄金基金")
	assert.ErrorIs(t, err, ErrUnknownAssetClass, "keyword matching is left to GuessAssetClass")

	data, err := json.Marshal(map[string]AssetClass{"c": AssetClassQuantFund})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"quant_fund"}`, string(data))
}

func TestGuessAssetClass(t *testing.T) {
	cases := map[string]AssetClass{
		"黄金":       AssetClassGold,
		"Gold ETF": AssetClassGold,
		"债券":       AssetClassBond,
		"bond":     AssetClassBond,
		"纳指":       AssetClassNasdaq100,
		"tech":     AssetClassNasdaq100,
		"比特币":      AssetClassBitcoin,
		"BTC":      AssetClassBitcoin,
		"量化基金":     AssetClassQuantFund,
		"基金":       AssetClassQuantFund,
		"whatever": AssetClassQuantFund,
	}
	for in, want := range cases {
		assert.Equal(t, want, GuessAssetClass(in), "input %q", in)
	}
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateBuy("518880", AssetClassGold, 1, 0))
	assert.ErrorIs(t, ValidateBuy("518880", AssetClass("x"), 1, 1), ErrUnknownAssetClass)
	assert.ErrorIs(t, ValidateBuy("518880", AssetClassGold, math.NaN(), 1), ErrInvalidQuantity)

	assert.NoError(t, ValidateSell(10, nil))
	zero := 0.0
	assert.NoError(t, ValidateSell(10, &zero), "zero price degenerates to a cash adjustment")
	assert.ErrorIs(t, ValidateSell(-1, nil), ErrInvalidProceeds)
	inf := math.Inf(1)
	assert.ErrorIs(t, ValidateSell(10, &inf), ErrInvalidPrice)
	assert.NoError(t, ValidatePrice(0))
	assert.ErrorIs(t, ValidatePrice(math.Inf(1)), ErrInvalidPrice)
	assert.ErrorIs(t, ValidatePrice(math.NaN()), ErrInvalidPrice)
	assert.ErrorIs(t, ValidatePrice(-0.01), ErrInvalidPrice)

	assert.ErrorIs(t, ValidatePositiveAmount(0), ErrInvalidAmount)

	assert.ErrorIs(t, ValidateStrategy(TargetStrategy{MaxDeviation: 0}), ErrInvalidStrategy)
	assert.ErrorIs(t, ValidateStrategy(TargetStrategy{
		Allocations:  map[AssetClass]float64{"x": 10},
		MaxDeviation: 5,
	}), ErrUnknownAssetClass)

	assert.ErrorIs(t, ValidateSettlementConfig(SettlementConfig{ProfitThreshold1: -1, ProfitThreshold2: 5}), ErrInvalidSettlementConfig)
	assert.ErrorIs(t, ValidateSettlementConfig(SettlementConfig{ProfitThreshold1: 6, ProfitThreshold2: 5}), ErrInvalidSettlementConfig)
	assert.ErrorIs(t, ValidateSettlementConfig(SettlementConfig{ProfitThreshold1: 3, ProfitThreshold2: 5, SharingRate1: 120}), ErrInvalidSettlementConfig)
	assert.NoError(t, ValidateSettlementConfig(SettlementConfig{}), "all zero is a valid config")
}

func TestValidateSettlementConfig_ReportsFirstInvalidField(t *testing.T) {
	cfg := SettlementConfig{ProfitThreshold1: -1, ProfitThreshold2: 5, SharingRate2: -1, GuaranteeThreshold: math.NaN()}

	for i := 0; i < 20; i++ {
		err := ValidateSettlementConfig(cfg)
		require.ErrorIs(t, err, ErrInvalidSettlementConfig)
		assert.Contains(t, err.Error(), "profit_threshold_1")
	}
}
