// Package ledger owns the set of holdings, the cash balance and the cumulative realized
// profit and loss. It applies buys (add or merge at weighted-average cost) and sells
// (partial liquidation) in place.
//
// The ledger is a single-writer structure: it takes no locks and performs no I/O. Callers
// validate input at the boundary (see domain.ValidateBuy) and serialize mutations.
package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/google/uuid"
)

// Epsilon is the quantity at or below which a holding is considered closed.
const Epsilon = 1e-3

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides the holding identifier generator.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// Ledger holds one Holding per normalized symbol.
type Ledger struct {
	bySymbol map[string]*domain.Holding
	byID     map[string]*domain.Holding

	cashBalance    float64
	realizedProfit float64
	realizedLoss   float64

	now   func() time.Time
	newID func() string
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		bySymbol: make(map[string]*domain.Holding),
		byID:     make(map[string]*domain.Holding),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromState restores a ledger from a persisted state. Holdings at or below Epsilon are
// dropped; holdings sharing a normalized symbol are merged at weighted-average cost.
func FromState(state domain.LedgerState, opts ...Option) *Ledger {
	l := New(opts...)
	l.cashBalance = state.CashBalance
	l.realizedProfit = state.RealizedProfit
	l.realizedLoss = state.RealizedLoss

	for _, h := range state.Holdings {
		if h.Quantity <= Epsilon {
			continue
		}
		symbol := domain.NormalizeSymbol(h.Symbol)
		if existing, ok := l.bySymbol[symbol]; ok {
			mergeInto(existing, h.Quantity, h.CostBasis)
			continue
		}
		holding := h
		holding.Symbol = symbol
		if holding.ID == "" {
			holding.ID = l.newID()
		}
		l.insert(&holding)
	}
	return l
}

// BuyOrder is the input to ApplyBuy. ResolvedPrice <= 0 means no live price is available.
type BuyOrder struct {
	Symbol        string
	AssetClass    domain.AssetClass
	Quantity      float64
	UnitCost      float64
	DisplayName   string
	ResolvedPrice float64
}

// ApplyBuy adds a holding or merges into the existing holding with the same normalized
// symbol, and returns the holding identifier. Cash is not affected.
func (l *Ledger) ApplyBuy(order BuyOrder) string {
	symbol := domain.NormalizeSymbol(order.Symbol)
	now := l.now()

	if existing, ok := l.bySymbol[symbol]; ok {
		mergeInto(existing, order.Quantity, order.UnitCost)
		if order.ResolvedPrice > 0 {
			existing.CurrentPrice = order.ResolvedPrice
		}
		existing.LastUpdated = now
		return existing.ID
	}

	price := order.UnitCost
	if order.ResolvedPrice > 0 {
		price = order.ResolvedPrice
	}
	holding := &domain.Holding{
		ID:           l.newID(),
		Symbol:       symbol,
		DisplayName:  order.DisplayName,
		AssetClass:   order.AssetClass,
		Quantity:     order.Quantity,
		CostBasis:    math.Max(0, order.UnitCost),
		CurrentPrice: math.Max(0, price),
		LastUpdated:  now,
	}
	l.insert(holding)
	return holding.ID
}

// mergeInto applies the weighted-average cost update for an additional lot.
func mergeInto(h *domain.Holding, quantity, unitCost float64) {
	newQty := h.Quantity + quantity
	if newQty == 0 {
		h.Quantity = 0
		h.CostBasis = 0
		return
	}
	h.CostBasis = (h.Quantity*h.CostBasis + quantity*unitCost) / newQty
	h.Quantity = newQty
}

// SellOrder is the input to ApplySell. A nil ExecutionPrice sells at the holding's
// current price.
type SellOrder struct {
	HoldingID      string
	Proceeds       float64
	ExecutionPrice *float64
}

// SellResult describes the effect of a sell.
type SellResult struct {
	HoldingID         string  `json:"holding_id"`
	Symbol            string  `json:"symbol"`
	ExecutionPrice    float64 `json:"execution_price"`
	Proceeds          float64 `json:"proceeds"`
	QuantitySold      float64 `json:"quantity_sold"`
	CostOfSold        float64 `json:"cost_of_sold"`
	PnL               float64 `json:"pnl"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	Closed            bool    `json:"closed"`
	OverSell          bool    `json:"over_sell"`
}

// PreviewSell computes a sell without mutating the ledger.
// RemainingQuantity is unclamped here so an over-sell shows as negative.
func (l *Ledger) PreviewSell(order SellOrder) (SellResult, error) {
	h, ok := l.byID[order.HoldingID]
	if !ok {
		return SellResult{}, domain.ErrHoldingNotFound
	}

	price := h.CurrentPrice
	if order.ExecutionPrice != nil {
		price = *order.ExecutionPrice
	}

	var qtySold float64
	if price > 0 {
		qtySold = order.Proceeds / price
	}
	costOfSold := qtySold * h.CostBasis
	remaining := h.Quantity - qtySold

	return SellResult{
		HoldingID:         h.ID,
		Symbol:            h.Symbol,
		ExecutionPrice:    price,
		Proceeds:          order.Proceeds,
		QuantitySold:      qtySold,
		CostOfSold:        costOfSold,
		PnL:               order.Proceeds - costOfSold,
		RemainingQuantity: remaining,
		Closed:            remaining <= Epsilon,
		OverSell:          remaining < 0,
	}, nil
}

// ApplySell realizes a partial or full liquidation. Over-sells are clamped to zero
// quantity, never rejected. The returned RemainingQuantity is the clamped value.
func (l *Ledger) ApplySell(order SellOrder) (SellResult, error) {
	result, err := l.PreviewSell(order)
	if err != nil {
		return SellResult{}, err
	}

	h := l.byID[order.HoldingID]
	h.Quantity = math.Max(0, h.Quantity-result.QuantitySold)
	h.LastUpdated = l.now()
	result.RemainingQuantity = h.Quantity
	if h.Quantity <= Epsilon {
		l.remove(h)
	}

	l.cashBalance += order.Proceeds
	if result.PnL > 0 {
		l.realizedProfit += result.PnL
	} else {
		l.realizedLoss += math.Abs(result.PnL)
	}

	return result, nil
}

// SetCashBalance overrides the cash balance. Negative values are accepted here and
// flagged by the caller.
func (l *Ledger) SetCashBalance(amount float64) {
	l.cashBalance = amount
}

// RecordManualLoss adds an out-of-band write-off to the realized loss.
func (l *Ledger) RecordManualLoss(amount float64) {
	l.realizedLoss += amount
}

// RemoveHolding deletes a holding without touching cash or realized P&L.
func (l *Ledger) RemoveHolding(id string) (domain.Holding, error) {
	h, ok := l.byID[id]
	if !ok {
		return domain.Holding{}, domain.ErrHoldingNotFound
	}
	l.remove(h)
	return *h, nil
}

// ApplyPrices sets current prices by holding id. Non-positive prices and unknown ids
// are ignored so a failed lookup keeps the last known price. Returns the number of
// holdings updated.
func (l *Ledger) ApplyPrices(prices map[string]float64) int {
	now := l.now()
	updated := 0
	for id, price := range prices {
		h, ok := l.byID[id]
		if !ok || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
			continue
		}
		h.CurrentPrice = price
		h.LastUpdated = now
		updated++
	}
	return updated
}

// Rename sets the display name of a holding.
func (l *Ledger) Rename(id, name string) error {
	h, ok := l.byID[id]
	if !ok {
		return domain.ErrHoldingNotFound
	}
	h.DisplayName = name
	return nil
}

// Holding returns a copy of the holding with the given id.
func (l *Ledger) Holding(id string) (domain.Holding, bool) {
	h, ok := l.byID[id]
	if !ok {
		return domain.Holding{}, false
	}
	return *h, true
}

// HoldingBySymbol returns a copy of the holding for a symbol, normalizing it first.
func (l *Ledger) HoldingBySymbol(symbol string) (domain.Holding, bool) {
	h, ok := l.bySymbol[domain.NormalizeSymbol(symbol)]
	if !ok {
		return domain.Holding{}, false
	}
	return *h, true
}

// Holdings returns copies of all holdings sorted by symbol.
func (l *Ledger) Holdings() []domain.Holding {
	out := make([]domain.Holding, 0, len(l.bySymbol))
	for _, h := range l.bySymbol {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Len returns the number of open holdings.
func (l *Ledger) Len() int { return len(l.bySymbol) }

// CashBalance returns the cash balance.
func (l *Ledger) CashBalance() float64 { return l.cashBalance }

// RealizedProfit returns the cumulative realized profit.
func (l *Ledger) RealizedProfit() float64 { return l.realizedProfit }

// RealizedLoss returns the cumulative realized loss as a positive magnitude.
func (l *Ledger) RealizedLoss() float64 { return l.realizedLoss }

// State returns a read-only copy of the ledger suitable for persistence.
func (l *Ledger) State() domain.LedgerState {
	return domain.LedgerState{
		Holdings:       l.Holdings(),
		CashBalance:    l.cashBalance,
		RealizedProfit: l.realizedProfit,
		RealizedLoss:   l.realizedLoss,
	}
}

func (l *Ledger) insert(h *domain.Holding) {
	l.bySymbol[h.Symbol] = h
	l.byID[h.ID] = h
}

func (l *Ledger) remove(h *domain.Holding) {
	delete(l.bySymbol, h.Symbol)
	delete(l.byID, h.ID)
}
