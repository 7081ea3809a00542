// Package portfolio derives summaries from the ledger and orchestrates every portfolio
// mutation: validation, price resolution, persistence and event emission.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/events"
	"github.com/aristath/alphaseeker/internal/modules/allocation"
	"github.com/aristath/alphaseeker/internal/modules/ledger"
	"github.com/aristath/alphaseeker/internal/modules/settlement"
	"github.com/rs/zerolog"
)

// EventEmitter publishes domain events. *events.Manager satisfies it.
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Service is the single writer of the portfolio.
//
// Every mutation runs under one mutex: validate, apply to the ledger, save the snapshot
// through the SnapshotStore, then emit an event. Price lookups happen outside the lock.
// A failed save is logged and returned; the in-memory mutation is kept.
//
// Dependencies:
//   - domain.SnapshotStore: persistence (optional, nil disables saving)
//   - domain.PriceResolver: live price and name lookup (optional)
//   - EventEmitter: change notifications (optional)
type Service struct {
	mu         sync.Mutex
	ledger     *ledger.Ledger
	strategy   domain.TargetStrategy
	settlement domain.SettlementConfig

	store    domain.SnapshotStore
	resolver domain.PriceResolver
	emitter  EventEmitter
	log      zerolog.Logger
	now      func() time.Time
	opts     []ledger.Option
}

// NewService creates a portfolio service with an empty ledger and default strategy.
// Call Load to restore persisted state.
func NewService(
	store domain.SnapshotStore,
	resolver domain.PriceResolver,
	emitter EventEmitter,
	log zerolog.Logger,
	opts ...ledger.Option,
) *Service {
	return &Service{
		ledger:     ledger.New(opts...),
		strategy:   domain.DefaultStrategy(),
		settlement: domain.DefaultSettlementConfig(),
		store:      store,
		resolver:   resolver,
		emitter:    emitter,
		log:        log.With().Str("service", "portfolio").Logger(),
		now:        time.Now,
		opts:       opts,
	}
}

// Load restores the persisted snapshot. Missing state leaves the defaults in place.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot == nil {
		s.log.Info().Msg("No saved portfolio, starting empty")
		return nil
	}
	s.restoreLocked(*snapshot)
	s.log.Info().
		Int("holdings", s.ledger.Len()).
		Float64("cash", s.ledger.CashBalance()).
		Msg("Portfolio loaded")
	return nil
}

// Restore replaces the whole state with a snapshot (e.g. from a backup) and saves it.
func (s *Service) Restore(ctx context.Context, snapshot domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreLocked(snapshot)
	return s.commitLocked(ctx, &events.PortfolioChangedData{Action: "restore", Holdings: s.ledger.Len()})
}

func (s *Service) restoreLocked(snapshot domain.Snapshot) {
	s.ledger = ledger.FromState(snapshot.Ledger, s.opts...)

	s.strategy = domain.DefaultStrategy()
	if len(snapshot.Strategy.Allocations) > 0 {
		s.strategy.Allocations = copyAllocations(snapshot.Strategy.Allocations)
	}
	if snapshot.Strategy.MaxDeviation > 0 {
		s.strategy.MaxDeviation = snapshot.Strategy.MaxDeviation
	}

	// Stores and decoders fill in defaults for missing settings, so zeros here were saved.
	s.settlement = snapshot.Settlement
}

// BuyRequest adds to or opens a position.
type BuyRequest struct {
	Symbol      string            `json:"symbol"`
	DisplayName string            `json:"display_name"`
	AssetClass  domain.AssetClass `json:"asset_class"`
	Quantity    float64           `json:"quantity"`
	UnitCost    float64           `json:"unit_cost"`
	// CurrentPrice skips the price lookup when set.
	CurrentPrice *float64 `json:"current_price,omitempty"`
}

// Buy validates the request, resolves a live price and name, and applies the buy.
func (s *Service) Buy(ctx context.Context, req BuyRequest) (domain.Holding, error) {
	if err := domain.ValidateBuy(req.Symbol, req.AssetClass, req.Quantity, req.UnitCost); err != nil {
		return domain.Holding{}, err
	}
	if req.CurrentPrice != nil {
		if err := domain.ValidatePrice(*req.CurrentPrice); err != nil {
			return domain.Holding{}, err
		}
	}

	buy := s.resolveOrder(ctx, ledger.BuyOrder{
		Symbol:      req.Symbol,
		AssetClass:  req.AssetClass,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		DisplayName: req.DisplayName,
	}, req.CurrentPrice)

	s.mu.Lock()
	defer s.mu.Unlock()

	holding := s.applyBuyLocked(buy)
	s.log.Info().
		Str("symbol", holding.Symbol).
		Float64("quantity", req.Quantity).
		Float64("unit_cost", req.UnitCost).
		Msg("Buy applied")

	err := s.commitLocked(ctx, &events.PortfolioChangedData{
		Action:    "buy",
		HoldingID: holding.ID,
		Symbol:    holding.Symbol,
		Amount:    req.Quantity * req.UnitCost,
		Holdings:  s.ledger.Len(),
	})
	return holding, err
}

// pendingBuy is a buy order with its lookup outcome, built outside the lock.
type pendingBuy struct {
	order        ledger.BuyOrder
	officialName string
}

// resolveOrder fills ResolvedPrice and the official name. Lookup failures are logged
// and ignored: the ledger then falls back to cost or the last known price.
func (s *Service) resolveOrder(ctx context.Context, order ledger.BuyOrder, explicit *float64) pendingBuy {
	symbol := domain.NormalizeSymbol(order.Symbol)
	if order.DisplayName == "" {
		order.DisplayName = symbol
	}
	if explicit != nil {
		order.ResolvedPrice = *explicit
		return pendingBuy{order: order}
	}
	if s.resolver == nil {
		return pendingBuy{order: order}
	}

	quote, err := s.resolver.Resolve(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed, using cost basis")
		return pendingBuy{order: order}
	}
	if quote == nil {
		return pendingBuy{order: order}
	}
	if quote.Price > 0 {
		order.ResolvedPrice = quote.Price
	}
	if quote.Name != "" {
		order.DisplayName = quote.Name
	}
	return pendingBuy{order: order, officialName: quote.Name}
}

// applyBuyLocked applies a resolved buy. A resolved official name also replaces the
// label of an existing holding.
func (s *Service) applyBuyLocked(buy pendingBuy) domain.Holding {
	id := s.ledger.ApplyBuy(buy.order)
	if buy.officialName != "" {
		_ = s.ledger.Rename(id, buy.officialName)
	}
	holding, _ := s.ledger.Holding(id)
	return holding
}

// ImportResult reports a batch import.
type ImportResult struct {
	Imported []domain.Holding `json:"imported"`
	Skipped  []ImportError    `json:"skipped"`
}

// BatchImport parses and applies batch text. Invalid rows are skipped and reported;
// the whole batch is saved once. Returns ErrNothingImported when no row is valid.
func (s *Service) BatchImport(ctx context.Context, text string) (ImportResult, error) {
	lines, skipped := ParseImport(text)
	result := ImportResult{Skipped: skipped}
	if len(lines) == 0 {
		return result, domain.ErrNothingImported
	}

	buys := make([]pendingBuy, 0, len(lines))
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("failed to resolve import prices: %w", err)
		}
		buys = append(buys, s.resolveOrder(ctx, ledger.BuyOrder{
			Symbol:      line.Symbol,
			AssetClass:  line.AssetClass,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			DisplayName: line.DisplayName,
		}, nil))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, buy := range buys {
		result.Imported = append(result.Imported, s.applyBuyLocked(buy))
	}
	s.log.Info().
		Int("imported", len(result.Imported)).
		Int("skipped", len(skipped)).
		Msg("Batch import applied")

	err := s.commitLocked(ctx, &events.PortfolioChangedData{Action: "import", Holdings: s.ledger.Len()})
	return result, err
}

// SellRequest liquidates part of a holding for a cash amount.
type SellRequest struct {
	HoldingID string   `json:"holding_id"`
	Proceeds  float64  `json:"proceeds"`
	Price     *float64 `json:"price,omitempty"`
	// AllowOverSell confirms a sell whose quantity exceeds the holding.
	AllowOverSell bool `json:"allow_oversell"`
}

// PreviewSell computes the effect of a sell without applying it.
func (s *Service) PreviewSell(req SellRequest) (ledger.SellResult, error) {
	if err := domain.ValidateSell(req.Proceeds, req.Price); err != nil {
		return ledger.SellResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.PreviewSell(ledger.SellOrder{HoldingID: req.HoldingID, Proceeds: req.Proceeds, ExecutionPrice: req.Price})
}

// Sell applies a sell. An over-sell is refused with ErrOverSell (and the preview) unless
// AllowOverSell is set, in which case the ledger clamps the holding to zero.
func (s *Service) Sell(ctx context.Context, req SellRequest) (ledger.SellResult, error) {
	if err := domain.ValidateSell(req.Proceeds, req.Price); err != nil {
		return ledger.SellResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := ledger.SellOrder{HoldingID: req.HoldingID, Proceeds: req.Proceeds, ExecutionPrice: req.Price}
	preview, err := s.ledger.PreviewSell(order)
	if err != nil {
		return ledger.SellResult{}, err
	}
	if preview.OverSell && !req.AllowOverSell {
		return preview, domain.ErrOverSell
	}

	result, err := s.ledger.ApplySell(order)
	if err != nil {
		return ledger.SellResult{}, err
	}
	s.log.Info().
		Str("symbol", result.Symbol).
		Float64("proceeds", result.Proceeds).
		Float64("quantity_sold", result.QuantitySold).
		Float64("pnl", result.PnL).
		Bool("closed", result.Closed).
		Msg("Sell applied")

	err = s.commitLocked(ctx, &events.PortfolioChangedData{
		Action:    "sell",
		HoldingID: result.HoldingID,
		Symbol:    result.Symbol,
		Amount:    result.Proceeds,
		Holdings:  s.ledger.Len(),
	})
	return result, err
}

// SetCash overrides the cash balance. Negative balances are accepted with a warning.
func (s *Service) SetCash(ctx context.Context, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 0 {
		s.log.Warn().Float64("amount", amount).Msg("Cash balance set to a negative value")
	}
	s.ledger.SetCashBalance(amount)

	return s.commitLocked(ctx, &events.PortfolioChangedData{Action: "set_cash", Amount: amount, Holdings: s.ledger.Len()})
}

// RecordLoss books an out-of-band write-off into realized loss.
func (s *Service) RecordLoss(ctx context.Context, amount float64) error {
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.RecordManualLoss(amount)
	s.log.Info().Float64("amount", amount).Msg("Manual loss recorded")

	return s.commitLocked(ctx, &events.PortfolioChangedData{Action: "record_loss", Amount: amount, Holdings: s.ledger.Len()})
}

// DeleteHolding removes a holding without any P&L effect.
func (s *Service) DeleteHolding(ctx context.Context, id string) (domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.ledger.RemoveHolding(id)
	if err != nil {
		return domain.Holding{}, err
	}
	s.log.Info().Str("symbol", removed.Symbol).Msg("Holding deleted")

	err = s.commitLocked(ctx, &events.PortfolioChangedData{
		Action:    "delete",
		HoldingID: removed.ID,
		Symbol:    removed.Symbol,
		Holdings:  s.ledger.Len(),
	})
	return removed, err
}

// RefreshResult reports a price refresh.
type RefreshResult struct {
	Requested int      `json:"requested"`
	Updated   int      `json:"updated"`
	Failed    []string `json:"failed"`
}

// RefreshPrices looks up every holding sequentially and applies the positive prices.
// Failed or missing lookups keep the last known price. Cancelling ctx stops the loop;
// prices resolved so far are still applied.
func (s *Service) RefreshPrices(ctx context.Context) (RefreshResult, error) {
	if s.resolver == nil {
		return RefreshResult{}, nil
	}

	s.mu.Lock()
	holdings := s.ledger.Holdings()
	s.mu.Unlock()

	result := RefreshResult{Requested: len(holdings), Failed: []string{}}
	prices := make(map[string]float64, len(holdings))
	names := make(map[string]string, len(holdings))
	var ctxErr error

	for _, h := range holdings {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		quote, err := s.resolver.Resolve(ctx, h.Symbol)
		if err != nil || quote == nil || quote.Price <= 0 {
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Price refresh failed, keeping last price")
			}
			result.Failed = append(result.Failed, h.Symbol)
			continue
		}
		prices[h.ID] = quote.Price
		if quote.Name != "" {
			names[h.ID] = quote.Name
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result.Updated = s.ledger.ApplyPrices(prices)
	for id, name := range names {
		_ = s.ledger.Rename(id, name)
	}
	s.log.Info().
		Int("requested", result.Requested).
		Int("updated", result.Updated).
		Int("failed", len(result.Failed)).
		Msg("Prices refreshed")

	// Prices resolved before a cancellation are still persisted
	if err := s.commitLocked(context.WithoutCancel(ctx), &events.PricesRefreshedData{
		Requested: result.Requested,
		Updated:   result.Updated,
		Failed:    len(result.Failed),
	}); err != nil {
		return result, err
	}
	if ctxErr != nil {
		return result, fmt.Errorf("price refresh interrupted: %w", ctxErr)
	}
	return result, nil
}

// Summary returns the current portfolio summary.
func (s *Service) Summary() domain.PortfolioSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(s.ledger.State())
}

// Holdings returns every holding with derived market figures.
func (s *Service) Holdings() []HoldingView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HoldingViews(s.ledger.State())
}

// Holding returns one holding by id.
func (s *Service) Holding(id string) (domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.ledger.Holding(id)
	if !ok {
		return domain.Holding{}, domain.ErrHoldingNotFound
	}
	return h, nil
}

// Performance returns the per-class chart rows.
func (s *Service) Performance() []PerformanceBar {
	return PerformanceBars(s.Summary())
}

// Allocation compares the current allocation with the stored strategy.
func (s *Service) Allocation() allocation.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return allocation.Evaluate(Summarize(s.ledger.State()), s.strategy)
}

// Settlement evaluates the stored settlement config.
func (s *Service) Settlement() settlement.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return settlement.Compute(Summarize(s.ledger.State()), s.settlement)
}

// SettlementWith evaluates an ad-hoc config without storing it.
func (s *Service) SettlementWith(cfg domain.SettlementConfig) (settlement.Result, error) {
	if err := domain.ValidateSettlementConfig(cfg); err != nil {
		return settlement.Result{}, err
	}
	return settlement.Compute(s.Summary(), cfg), nil
}

// Strategy returns a copy of the target strategy.
func (s *Service) Strategy() domain.TargetStrategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TargetStrategy{
		Allocations:  copyAllocations(s.strategy.Allocations),
		MaxDeviation: s.strategy.MaxDeviation,
	}
}

// UpdateStrategy validates and stores a new target strategy.
func (s *Service) UpdateStrategy(ctx context.Context, strategy domain.TargetStrategy) error {
	if err := domain.ValidateStrategy(strategy); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.strategy = domain.TargetStrategy{
		Allocations:  copyAllocations(strategy.Allocations),
		MaxDeviation: strategy.MaxDeviation,
	}

	data := &events.StrategyUpdatedData{MaxDeviation: strategy.MaxDeviation, Allocations: make(map[string]float64)}
	for class, pct := range strategy.Allocations {
		data.Allocations[class.String()] = pct
	}
	return s.commitLocked(ctx, data)
}

// SettlementConfig returns the stored settlement config.
func (s *Service) SettlementConfig() domain.SettlementConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settlement
}

// UpdateSettlementConfig validates and stores a settlement config.
func (s *Service) UpdateSettlementConfig(ctx context.Context, cfg domain.SettlementConfig) error {
	if err := domain.ValidateSettlementConfig(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settlement = cfg
	return s.commitLocked(ctx, &events.SettlementConfigUpdatedData{
		ProfitThreshold1:   cfg.ProfitThreshold1,
		ProfitThreshold2:   cfg.ProfitThreshold2,
		SharingRate1:       cfg.SharingRate1,
		SharingRate2:       cfg.SharingRate2,
		GuaranteeThreshold: cfg.GuaranteeThreshold,
	})
}

// Snapshot returns the complete current state.
func (s *Service) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Ledger: s.ledger.State(),
		Strategy: domain.TargetStrategy{
			Allocations:  copyAllocations(s.strategy.Allocations),
			MaxDeviation: s.strategy.MaxDeviation,
		},
		Settlement: s.settlement,
		SavedAt:    s.now().UTC(),
	}
}

// commitLocked saves the snapshot and emits the event. The event is emitted even when
// the save fails so live views stay in step with memory.
func (s *Service) commitLocked(ctx context.Context, data events.EventData) error {
	var saveErr error
	if s.store != nil {
		if err := s.store.Save(ctx, s.snapshotLocked()); err != nil {
			s.log.Error().Err(err).Str("event_type", string(data.EventType())).Msg("Failed to save portfolio snapshot")
			saveErr = fmt.Errorf("failed to save snapshot: %w", err)
		}
	}
	if s.emitter != nil {
		s.emitter.EmitTyped("portfolio", data)
	}
	return saveErr
}

func copyAllocations(in map[domain.AssetClass]float64) map[domain.AssetClass]float64 {
	out := make(map[domain.AssetClass]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// IsValidationError reports whether err is an input contract violation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidSymbol,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidCost,
		domain.ErrInvalidPrice,
		domain.ErrInvalidProceeds,
		domain.ErrInvalidAmount,
		domain.ErrUnknownAssetClass,
		domain.ErrCashNotHoldable,
		domain.ErrInvalidStrategy,
		domain.ErrInvalidSettlementConfig,
		domain.ErrNothingImported,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
