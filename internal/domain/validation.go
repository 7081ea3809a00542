package domain

import (
	"fmt"
	"math"
)

// ValidateBuy checks the input contract of a buy before it reaches the ledger.
func ValidateBuy(symbol string, class AssetClass, quantity, unitCost float64) error {
	if NormalizeSymbol(symbol) == "" {
		return ErrInvalidSymbol
	}
	if !class.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownAssetClass, class)
	}
	if class == AssetClassCash {
		return ErrCashNotHoldable
	}
	if !isFinite(quantity) || quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !isFinite(unitCost) || unitCost < 0 {
		return ErrInvalidCost
	}
	return nil
}

// ValidateSell checks the input contract of a sell. A nil price means "at the current price".
func ValidateSell(proceeds float64, price *float64) error {
	if !isFinite(proceeds) || proceeds <= 0 {
		return ErrInvalidProceeds
	}
	if price != nil {
		return ValidatePrice(*price)
	}
	return nil
}

// ValidatePrice accepts any finite, non-negative price.
func ValidatePrice(price float64) error {
	if !isFinite(price) || price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// ValidatePositiveAmount is used for manual losses.
func ValidatePositiveAmount(amount float64) error {
	if !isFinite(amount) || amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateStrategy checks targets lie in [0, 100] and the deviation threshold is positive.
// Targets are not required to sum to 100.
func ValidateStrategy(s TargetStrategy) error {
	for class, pct := range s.Allocations {
		if !class.IsValid() {
			return fmt.Errorf("%w: %w: %q", ErrInvalidStrategy, ErrUnknownAssetClass, class)
		}
		if !isFinite(pct) || pct < 0 || pct > 100 {
			return fmt.Errorf("%w: target for %s must be between 0 and 100", ErrInvalidStrategy, class)
		}
	}
	if !isFinite(s.MaxDeviation) || s.MaxDeviation <= 0 {
		return fmt.Errorf("%w: max deviation must be greater than zero", ErrInvalidStrategy)
	}
	return nil
}

// ValidateSettlementConfig rejects negative or inverted thresholds and rates above 100%.
// The settlement formula itself stays permissive; this runs where configs are accepted.
func ValidateSettlementConfig(c SettlementConfig) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"profit_threshold_1", c.ProfitThreshold1},
		{"profit_threshold_2", c.ProfitThreshold2},
		{"sharing_rate_1", c.SharingRate1},
		{"sharing_rate_2", c.SharingRate2},
		{"guarantee_threshold", c.GuaranteeThreshold},
	}
	for _, f := range fields {
		if !isFinite(f.value) || f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidSettlementConfig, f.name)
		}
	}
	if c.ProfitThreshold1 > c.ProfitThreshold2 {
		return fmt.Errorf("%w: profit_threshold_1 must not exceed profit_threshold_2", ErrInvalidSettlementConfig)
	}
	if c.SharingRate1 > 100 || c.SharingRate2 > 100 {
		return fmt.Errorf("%w: sharing rates must not exceed 100", ErrInvalidSettlementConfig)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
