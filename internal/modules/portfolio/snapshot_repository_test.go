package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/alphaseeker/internal/domain"
	testingpkg "github.com/aristath/alphaseeker/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRepository_LoadEmpty(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())

	snapshot, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())
	fixture := testingpkg.NewSnapshotFixture()

	require.NoError(t, repo.Save(context.Background(), fixture))
	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, fixture.Ledger.CashBalance, loaded.Ledger.CashBalance)
	assert.Equal(t, fixture.Ledger.RealizedProfit, loaded.Ledger.RealizedProfit)
	assert.Equal(t, fixture.Ledger.RealizedLoss, loaded.Ledger.RealizedLoss)
	assert.Equal(t, fixture.Strategy, loaded.Strategy)
	assert.Equal(t, fixture.Settlement, loaded.Settlement)
	assert.True(t, fixture.SavedAt.Equal(loaded.SavedAt))

	require.Len(t, loaded.Ledger.Holdings, len(fixture.Ledger.Holdings))
	bySymbol := make(map[string]domain.Holding)
	for _, h := range loaded.Ledger.Holdings {
		bySymbol[h.Symbol] = h
	}
	for _, want := range fixture.Ledger.Holdings {
		got, ok := bySymbol[want.Symbol]
		require.True(t, ok, want.Symbol)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.DisplayName, got.DisplayName)
		assert.Equal(t, want.AssetClass, got.AssetClass)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.Equal(t, want.CostBasis, got.CostBasis)
		assert.Equal(t, want.CurrentPrice, got.CurrentPrice)
		assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
	}
}

func TestSnapshotRepository_SaveReplacesPreviousSnapshot(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, testingpkg.NewSnapshotFixture()))

	next := testingpkg.NewSnapshotFixture()
	next.Ledger.Holdings = next.Ledger.Holdings[:1]
	next.Ledger.CashBalance = 99
	next.Strategy.Allocations = map[domain.AssetClass]float64{domain.AssetClassGold: 100}
	require.NoError(t, repo.Save(ctx, next))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Ledger.Holdings, 1)
	assert.Equal(t, 99.0, loaded.Ledger.CashBalance)
	assert.Equal(t, map[domain.AssetClass]float64{domain.AssetClassGold: 100}, loaded.Strategy.Allocations)
}

func TestSnapshotRepository_ServiceRoundTrip(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	writer := NewService(repo, nil, nil, zerolog.Nop())
	_, err := writer.Buy(ctx, BuyRequest{Symbol: "518880", AssetClass: domain.AssetClassGold, Quantity: 1000, UnitCost: 4.2})
	require.NoError(t, err)
	require.NoError(t, writer.SetCash(ctx, 2500))

	reader := NewService(repo, nil, nil, zerolog.Nop())
	require.NoError(t, reader.Load(ctx))

	assert.Equal(t, writer.Summary(), reader.Summary())
}

func TestSnapshotRepository_ZeroSettlementConfigRoundTrips(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	fixture := testingpkg.NewSnapshotFixture()
	fixture.Settlement = domain.SettlementConfig{}
	require.NoError(t, repo.Save(ctx, fixture))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementConfig{}, loaded.Settlement)

	service := NewService(repo, nil, nil, zerolog.Nop())
	require.NoError(t, service.Load(ctx))
	assert.Equal(t, domain.SettlementConfig{}, service.SettlementConfig())
}

func TestSnapshotRepository_MissingSettingsUseDefaults(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, testingpkg.NewSnapshotFixture()))

	_, err := db.Conn().ExecContext(ctx, `DELETE FROM settings`)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettlementConfig(), loaded.Settlement)
	assert.Equal(t, domain.DefaultStrategy().MaxDeviation, loaded.Strategy.MaxDeviation)
}

func TestSnapshotRepository_KeepsSubSecondTimestamps(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	fixture := testingpkg.NewSnapshotFixture()
	fixture.SavedAt = time.Date(2024, 3, 1, 12, 0, 0, 750_000_000, time.UTC)
	fixture.Ledger.Holdings = fixture.Ledger.Holdings[:1]
	fixture.Ledger.Holdings[0].LastUpdated = time.Date(2024, 3, 1, 11, 59, 59, 250_000_000, time.UTC)
	require.NoError(t, repo.Save(ctx, fixture))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, fixture.SavedAt.Equal(loaded.SavedAt), "saved_at %s", loaded.SavedAt)
	require.Len(t, loaded.Ledger.Holdings, 1)
	assert.True(t, fixture.Ledger.Holdings[0].LastUpdated.Equal(loaded.Ledger.Holdings[0].LastUpdated),
		"last_updated %s", loaded.Ledger.Holdings[0].LastUpdated)
}
