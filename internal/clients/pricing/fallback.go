// Package pricing composes price resolvers into the lookup chain used by the portfolio service.
package pricing

import (
	"context"
	"time"

	"github.com/aristath/alphaseeker/internal/domain"
)

// FallbackSourceName identifies quotes served from the static table
const FallbackSourceName = "fallback"

// FallbackEntry is a static reference quote for a symbol the fund API does not cover
type FallbackEntry struct {
	Name       string
	Price      float64
	AssetClass domain.AssetClass
}

// DefaultFallbackTable covers the US listings and crypto the portfolio typically holds
func DefaultFallbackTable() map[string]FallbackEntry {
	return map[string]FallbackEntry{
		"QQQ":  {Name: "Invesco QQQ", Price: 445.00, AssetClass: domain.AssetClassNasdaq100},
		"NVDA": {Name: "NVIDIA Corp", Price: 920.00, AssetClass: domain.AssetClassNasdaq100},
		"AAPL": {Name: "Apple Inc", Price: 175.00, AssetClass: domain.AssetClassNasdaq100},
		"BTC":  {Name: "Bitcoin USD", Price: 68000.00, AssetClass: domain.AssetClassBitcoin},
		"IBIT": {Name: "iShares Bitcoin Trust", Price: 38.50, AssetClass: domain.AssetClassBitcoin},
	}
}

// FallbackResolver serves quotes from a fixed table
type FallbackResolver struct {
	table map[string]FallbackEntry
	now   func() time.Time
}

// NewFallbackResolver creates a resolver over table, or the default table when nil
func NewFallbackResolver(table map[string]FallbackEntry) *FallbackResolver {
	if table == nil {
		table = DefaultFallbackTable()
	}
	normalized := make(map[string]FallbackEntry, len(table))
	for symbol, entry := range table {
		normalized[domain.NormalizeSymbol(symbol)] = entry
	}
	return &FallbackResolver{table: normalized, now: time.Now}
}

// Resolve implements domain.PriceResolver
func (r *FallbackResolver) Resolve(_ context.Context, symbol string) (*domain.PriceQuote, error) {
	key := domain.NormalizeSymbol(symbol)
	entry, ok := r.table[key]
	if !ok || entry.Price <= 0 {
		return nil, nil
	}
	return &domain.PriceQuote{
		Symbol: key,
		Name:   entry.Name,
		Price:  entry.Price,
		Source: FallbackSourceName,
		AsOf:   r.now().UTC(),
	}, nil
}

// AssetClass returns the asset class recorded for a symbol in the table
func (r *FallbackResolver) AssetClass(symbol string) (domain.AssetClass, bool) {
	entry, ok := r.table[domain.NormalizeSymbol(symbol)]
	if !ok || !entry.AssetClass.IsValid() {
		return "", false
	}
	return entry.AssetClass, true
}
