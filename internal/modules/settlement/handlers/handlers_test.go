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

func setupRouter(t *testing.T) (*chi.Mux, *portfolio.Service) {
	t.Helper()

	store := testingpkg.NewMemorySnapshotStore()
	require.NoError(t, store.Save(context.Background(), testingpkg.NewSnapshotFixture()))

	service := portfolio.NewService(store, nil, nil, zerolog.Nop())
	require.NoError(t, service.Load(context.Background()))

	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router, service
}

func serve(t *testing.T, router http.Handler, method, path, body string) map[string]interface{} {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	out["status_code"] = float64(rec.Code)
	return out
}

func TestHandleGetSettlement(t *testing.T) {
	router, service := setupRouter(t)

	body := serve(t, router, "GET", "/settlement/", "")
	assert.Equal(t, 200.0, body["status_code"])

	expected := service.Settlement()
	assert.InDelta(t, expected.TotalCost, body["total_cost"], 1e-9)
	assert.InDelta(t, expected.SharingAmount, body["sharing_amount"], 1e-9)
	assert.Contains(t, body, "guarantee_triggered")
}

func TestHandleCalculate_Scenario(t *testing.T) {
	router, _ := setupRouter(t)

	body := serve(t, router, "POST", "/settlement/calculate",
		`{"config":{"profit_threshold_1":3,"profit_threshold_2":5,"sharing_rate_1":20,"sharing_rate_2":50,"guarantee_threshold":3},
		  "total_cost":100000,"total_return":6000}`)
	require.Equal(t, 200.0, body["status_code"])
	assert.InDelta(t, 400.0, body["bracket1_amount"], 1e-9)
	assert.InDelta(t, 500.0, body["bracket2_amount"], 1e-9)
	assert.InDelta(t, 900.0, body["sharing_amount"], 1e-9)
	assert.Equal(t, false, body["guarantee_triggered"])

	body = serve(t, router, "POST", "/settlement/calculate", `{"total_cost":100000,"total_return":-2000}`)
	require.Equal(t, 200.0, body["status_code"])
	assert.InDelta(t, 103000.0, body["target_value"], 1e-9)
	assert.InDelta(t, 5000.0, body["guarantee_amount"], 1e-9)
	assert.Equal(t, true, body["guarantee_triggered"])
	assert.InDelta(t, 0.0, body["sharing_amount"], 1e-9)
}

func TestHandleCalculate_LivePortfolio(t *testing.T) {
	router, service := setupRouter(t)

	cfg := domain.SettlementConfig{ProfitThreshold1: 1, ProfitThreshold2: 2, SharingRate1: 10, SharingRate2: 30}
	body := serve(t, router, "POST", "/settlement/calculate",
		`{"config":{"profit_threshold_1":1,"profit_threshold_2":2,"sharing_rate_1":10,"sharing_rate_2":30}}`)
	require.Equal(t, 200.0, body["status_code"])

	expected, err := service.SettlementWith(cfg)
	require.NoError(t, err)
	assert.InDelta(t, expected.SharingAmount, body["sharing_amount"], 1e-9)

	// Nothing stored.
	assert.Equal(t, domain.DefaultSettlementConfig(), service.SettlementConfig())
}

func TestHandleCalculate_Invalid(t *testing.T) {
	router, _ := setupRouter(t)

	for name, payload := range map[string]string{
		"inverted thresholds": `{"config":{"profit_threshold_1":6,"profit_threshold_2":5}}`,
		"negative rate":       `{"config":{"profit_threshold_1":1,"profit_threshold_2":5,"sharing_rate_1":-1}}`,
		"negative cost":       `{"total_cost":-1}`,
		"malformed":           `[`,
	} {
		body := serve(t, router, "POST", "/settlement/calculate", payload)
		assert.Equal(t, 400.0, body["status_code"], name)
		assert.Contains(t, body, "error", name)
	}
}

func TestHandleConfig(t *testing.T) {
	router, service := setupRouter(t)

	body := serve(t, router, "GET", "/settlement/config", "")
	assert.Equal(t, 200.0, body["status_code"])
	assert.Equal(t, 3.0, body["profit_threshold_1"])
	assert.Equal(t, 50.0, body["sharing_rate_2"])

	body = serve(t, router, "PUT", "/settlement/config",
		`{"profit_threshold_1":2,"profit_threshold_2":8,"sharing_rate_1":15,"sharing_rate_2":40,"guarantee_threshold":0}`)
	require.Equal(t, 200.0, body["status_code"])
	assert.Equal(t, 8.0, service.SettlementConfig().ProfitThreshold2)

	body = serve(t, router, "PUT", "/settlement/config", `{"profit_threshold_1":9,"profit_threshold_2":8}`)
	assert.Equal(t, 400.0, body["status_code"])
	assert.Equal(t, 8.0, service.SettlementConfig().ProfitThreshold2)
}
