package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/alphaseeker/internal/database"
	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/rs/zerolog"
)

const (
	settingMaxDeviation       = "max_deviation"
	settingProfitThreshold1   = "profit_threshold_1"
	settingProfitThreshold2   = "profit_threshold_2"
	settingSharingRate1       = "sharing_rate_1"
	settingSharingRate2       = "sharing_rate_2"
	settingGuaranteeThreshold = "guarantee_threshold"
)

// SnapshotRepository persists the portfolio snapshot in portfolio.db.
// Save rewrites every table inside one transaction so a snapshot is never half-written.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Save replaces the stored snapshot
func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, stmt := range []string{"DELETE FROM holdings", "DELETE FROM strategy_targets"} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear snapshot tables: %w", err)
			}
		}

		insertHolding, err := tx.PrepareContext(ctx, `INSERT INTO holdings
			(id, symbol, display_name, asset_class, quantity, cost_basis, current_price, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare holding insert: %w", err)
		}
		defer insertHolding.Close()

		for _, h := range snapshot.Ledger.Holdings {
			if _, err := insertHolding.ExecContext(ctx,
				h.ID, h.Symbol, h.DisplayName, string(h.AssetClass),
				h.Quantity, h.CostBasis, h.CurrentPrice, h.LastUpdated.UnixMilli(),
			); err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_state (id, cash_balance, realized_profit, realized_loss, saved_at)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				cash_balance = excluded.cash_balance,
				realized_profit = excluded.realized_profit,
				realized_loss = excluded.realized_loss,
				saved_at = excluded.saved_at`,
			snapshot.Ledger.CashBalance, snapshot.Ledger.RealizedProfit, snapshot.Ledger.RealizedLoss, savedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to upsert ledger state: %w", err)
		}

		for class, pct := range snapshot.Strategy.Allocations {
			if _, err := tx.ExecContext(ctx, `INSERT INTO strategy_targets (asset_class, target_pct) VALUES (?, ?)`,
				string(class), pct); err != nil {
				return fmt.Errorf("failed to insert strategy target %s: %w", class, err)
			}
		}

		settings := map[string]float64{
			settingMaxDeviation:       snapshot.Strategy.MaxDeviation,
			settingProfitThreshold1:   snapshot.Settlement.ProfitThreshold1,
			settingProfitThreshold2:   snapshot.Settlement.ProfitThreshold2,
			settingSharingRate1:       snapshot.Settlement.SharingRate1,
			settingSharingRate2:       snapshot.Settlement.SharingRate2,
			settingGuaranteeThreshold: snapshot.Settlement.GuaranteeThreshold,
		}
		for key, value := range settings {
			if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
				return fmt.Errorf("failed to upsert setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	r.log.Debug().
		Int("holdings", len(snapshot.Ledger.Holdings)).
		Msg("Snapshot saved")
	return nil
}

// Load returns the stored snapshot, or nil when nothing has been saved yet
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	var savedAt int64

	err := r.db.QueryRowContext(ctx, `SELECT cash_balance, realized_profit, realized_loss, saved_at
		FROM ledger_state WHERE id = 1`).
		Scan(&snapshot.Ledger.CashBalance, &snapshot.Ledger.RealizedProfit, &snapshot.Ledger.RealizedLoss, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger state: %w", err)
	}
	snapshot.SavedAt = time.UnixMilli(savedAt).UTC()

	holdings, err := r.loadHoldings(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Ledger.Holdings = holdings

	if snapshot.Strategy.Allocations, err = r.loadTargets(ctx); err != nil {
		return nil, err
	}

	settings, err := r.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	// Missing rows fall back to defaults; a stored zero is kept.
	defaults := domain.DefaultSettlementConfig()
	snapshot.Strategy.MaxDeviation = settingOr(settings, settingMaxDeviation, domain.DefaultStrategy().MaxDeviation)
	snapshot.Settlement = domain.SettlementConfig{
		ProfitThreshold1:   settingOr(settings, settingProfitThreshold1, defaults.ProfitThreshold1),
		ProfitThreshold2:   settingOr(settings, settingProfitThreshold2, defaults.ProfitThreshold2),
		SharingRate1:       settingOr(settings, settingSharingRate1, defaults.SharingRate1),
		SharingRate2:       settingOr(settings, settingSharingRate2, defaults.SharingRate2),
		GuaranteeThreshold: settingOr(settings, settingGuaranteeThreshold, defaults.GuaranteeThreshold),
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) loadHoldings(ctx context.Context) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, symbol, display_name, asset_class, quantity,
		cost_basis, current_price, last_updated
		FROM holdings ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		var h domain.Holding
		var class string
		var lastUpdated int64
		if err := rows.Scan(&h.ID, &h.Symbol, &h.DisplayName, &class, &h.Quantity,
			&h.CostBasis, &h.CurrentPrice, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.AssetClass, err = domain.ParseAssetClass(class)
		if err != nil {
			r.log.Warn().Str("symbol", h.Symbol).Str("asset_class", class).Msg("Unknown asset class, treating as quant fund")
			h.AssetClass = domain.AssetClassQuantFund
		}
		h.LastUpdated = time.UnixMilli(lastUpdated).UTC()
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

func (r *SnapshotRepository) loadTargets(ctx context.Context) (map[domain.AssetClass]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT asset_class, target_pct FROM strategy_targets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy targets: %w", err)
	}
	defer rows.Close()

	targets := make(map[domain.AssetClass]float64)
	for rows.Next() {
		var class string
		var pct float64
		if err := rows.Scan(&class, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan strategy target: %w", err)
		}
		parsed, err := domain.ParseAssetClass(class)
		if err != nil {
			r.log.Warn().Str("asset_class", class).Msg("Skipping target for unknown asset class")
			continue
		}
		targets[parsed] = pct
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy targets: %w", err)
	}
	return targets, nil
}

func (r *SnapshotRepository) loadSettings(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]float64)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return settings, nil
}

func settingOr(settings map[string]float64, key string, fallback float64) float64 {
	if v, ok := settings[key]; ok {
		return v
	}
	return fallback
}
