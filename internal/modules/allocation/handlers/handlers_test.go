package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	testingpkg "github.com/aristath/alphaseeker/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*chi.Mux, *portfolio.Service, *testingpkg.MemorySnapshotStore) {
	t.Helper()

	store := testingpkg.NewMemorySnapshotStore()
	require.NoError(t, store.Save(context.Background(), testingpkg.NewSnapshotFixture()))

	service := portfolio.NewService(store, nil, nil, zerolog.Nop())
	require.NoError(t, service.Load(context.Background()))

	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router, service, store
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleGetReport(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := serve(router, "GET", "/allocation/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Deviations []struct {
			AssetClass        string   `json:"asset_class"`
			RelativeDeviation *float64 `json:"relative_deviation"`
			Unbounded         bool     `json:"unbounded"`
			Status            string   `json:"status"`
		} `json:"deviations"`
		InvestableCash float64 `json:"investable_cash"`
		MaxDeviation   float64 `json:"max_deviation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	require.Len(t, report.Deviations, 6)
	assert.Equal(t, "gold", report.Deviations[0].AssetClass)
	assert.Equal(t, 15.0, report.MaxDeviation)

	// No bitcoin held against a zero target.
	btc := report.Deviations[4]
	assert.Equal(t, "bitcoin", btc.AssetClass)
	require.NotNil(t, btc.RelativeDeviation)
	assert.Equal(t, 0.0, *btc.RelativeDeviation)
	assert.Equal(t, "on_target", btc.Status)

	// Total value 15290, cash target 5% = 764.5, cash 1500.
	assert.InDelta(t, 735.5, report.InvestableCash, 1e-9)
}

func TestHandleGetReport_UnboundedDeviation(t *testing.T) {
	router, service, _ := setupRouter(t)

	_, err := service.Buy(context.Background(), portfolio.BuyRequest{
		Symbol:     "IBIT",
		AssetClass: domain.AssetClassBitcoin,
		Quantity:   10,
		UnitCost:   38,
	})
	require.NoError(t, err)

	rec := serve(router, "GET", "/allocation/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"asset_class":"bitcoin"`)
	assert.Contains(t, rec.Body.String(), `"relative_deviation":null`)
	assert.Contains(t, rec.Body.String(), `"unbounded":true`)
}

func TestHandleStrategy(t *testing.T) {
	router, service, store := setupRouter(t)

	rec := serve(router, "GET", "/allocation/strategy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allocations":{"gold":20,"quant_fund":50,"bond":15,"nasdaq100":10,"bitcoin":0,"cash":5},"max_deviation":15}`,
		rec.Body.String())

	saves := store.SaveCount()
	rec = serve(router, "PUT", "/allocation/strategy",
		`{"allocations":{"gold":30,"quant_fund":40,"bond":10,"nasdaq100":10,"bitcoin":5,"cash":5},"max_deviation":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 30.0, service.Strategy().Target(domain.AssetClassGold))
	assert.Equal(t, 10.0, service.Strategy().MaxDeviation)
	assert.Equal(t, saves+1, store.SaveCount())
}

func TestHandleUpdateStrategy_Invalid(t *testing.T) {
	router, service, _ := setupRouter(t)

	for name, body := range map[string]string{
		"malformed":       `{`,
		"missing targets": `{"max_deviation":10}`,
		"unknown class":   `{"allocations":{"stocks":50},"max_deviation":10}`,
		"out of range":    `{"allocations":{"gold":120},"max_deviation":10}`,
		"zero deviation":  `{"allocations":{"gold":20},"max_deviation":0}`,
	} {
		rec := serve(router, "PUT", "/allocation/strategy", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Contains(t, rec.Body.String(), `"error"`, name)
	}
	assert.Equal(t, domain.DefaultStrategy(), service.Strategy())
}
