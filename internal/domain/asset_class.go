package domain

import (
	"fmt"
	"strings"
)

// AssetClass is the closed set of asset classes the portfolio is organised around.
// Every component (ledger, aggregator, comparator, settlement) shares this type.
type AssetClass string

const (
	AssetClassGold      AssetClass = "gold"
	AssetClassQuantFund AssetClass = "quant_fund"
	AssetClassBond      AssetClass = "bond"
	AssetClassNasdaq100 AssetClass = "nasdaq100"
	AssetClassBitcoin   AssetClass = "bitcoin"
	AssetClassCash      AssetClass = "cash"
)

var allAssetClasses = []AssetClass{
	AssetClassGold,
	AssetClassQuantFund,
	AssetClassBond,
	AssetClassNasdaq100,
	AssetClassBitcoin,
	AssetClassCash,
}

// AllAssetClasses returns every asset class in canonical order.
// The returned slice is a copy and may be modified by the caller.
func AllAssetClasses() []AssetClass {
	out := make([]AssetClass, len(allAssetClasses))
	copy(out, allAssetClasses)
	return out
}

// HoldingAssetClasses returns the classes a Holding may belong to (everything but cash).
func HoldingAssetClasses() []AssetClass {
	return AllAssetClasses()[:len(allAssetClasses)-1]
}

// IsValid reports whether c is one of the known asset classes.
func (c AssetClass) IsValid() bool {
	switch c {
	case AssetClassGold, AssetClassQuantFund, AssetClassBond,
		AssetClassNasdaq100, AssetClassBitcoin, AssetClassCash:
		return true
	}
	return false
}

// Label returns the display label used by the dashboard.
func (c AssetClass) Label() string {
	switch c {
	case AssetClassGold:
		return "黄金"
	case AssetClassQuantFund:
		return "量化基金"
	case AssetClassBond:
		return "债券"
	case AssetClassNasdaq100:
		return "纳斯达克100"
	case AssetClassBitcoin:
		return "比特币"
	case AssetClassCash:
		return "现金"
	}
	return string(c)
}

func (c AssetClass) String() string { return string(c) }

// ParseAssetClass accepts the canonical slug or the display label.
func ParseAssetClass(s string) (AssetClass, error) {
	s = strings.TrimSpace(s)
	for _, c := range allAssetClasses {
		if strings.EqualFold(s, string(c)) || s == c.Label() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAssetClass, s)
}

// GuessAssetClass maps free text from a batch import line to an asset class.
// Exact slugs and labels win; otherwise keywords decide, and anything unrecognised
// is treated as a quant fund. "基金" (fund) is stripped first so that it does not
// match the gold keyword.
func GuessAssetClass(s string) AssetClass {
	if c, err := ParseAssetClass(s); err == nil && c != AssetClassCash {
		return c
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "基金", "")
	switch {
	case strings.Contains(s, "金") || strings.Contains(s, "gold"):
		return AssetClassGold
	case strings.Contains(s, "债") || strings.Contains(s, "bond"):
		return AssetClassBond
	case strings.Contains(s, "纳") || strings.Contains(s, "tech") || strings.Contains(s, "nasdaq"):
		return AssetClassNasdaq100
	case strings.Contains(s, "币") || strings.Contains(s, "btc"):
		return AssetClassBitcoin
	}
	return AssetClassQuantFund
}
