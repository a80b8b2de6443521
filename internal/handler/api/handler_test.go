package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/repository"
	"AssetRevest/internal/services/market"
	"AssetRevest/internal/usecase"
	"AssetRevest/pkg/cache"
	"AssetRevest/pkg/config"
	xhttp "AssetRevest/pkg/http"
	"AssetRevest/pkg/metrics"
	"AssetRevest/pkg/queue"
)

type stubQueue struct{ n int }

func (q *stubQueue) Enqueue(context.Context, string, interface{}) (string, error) {
	q.n++
	return "job-1", nil
}

func newServer(t *testing.T, q queue.Publisher) *xhttp.Server {
	t.Helper()
	cfg := config.Default()
	store := repository.NewMemoryStore()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	events := repository.NopPublisher{}
	loader := market.NewLoader(store, cfg.Universe.ComputeSymbols())
	portfolio := usecase.NewPortfolio(store, events, metrics.Nop{}, cfg.Universe, cfg.Strategy)
	daily := usecase.NewDailySignal(store, loader, portfolio, mc, events, metrics.Nop{}, cfg.Universe, cfg.Strategy)
	backtests := usecase.NewBacktests(store, loader, q, mc, events, metrics.Nop{}, cfg.Universe, cfg.Strategy)

	h := NewHandler(nil, daily, portfolio, backtests)
	return xhttp.NewServer(h, xhttp.WithCORS(false), xhttp.WithMetricsPath(""))
}

func do(t *testing.T, s *xhttp.Server, method, target, body string) (int, xhttp.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var resp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	code, _ := do(t, newServer(t, nil), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestPortfolioLifecycle(t *testing.T) {
	s := newServer(t, nil)

	code, resp := do(t, s, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 100000.0, data["equity"])

	code, _ = do(t, s, http.MethodPost, "/api/portfolio/enter", `{"symbol":"SPY","price":200,"date":"2024-03-01"}`)
	require.Equal(t, http.StatusOK, code)

	code, resp = do(t, s, http.MethodPost, "/api/portfolio/enter", `{"symbol":"QQQ","price":100}`)
	assert.Equal(t, http.StatusConflict, code)
	errs := resp.Data.([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_CONFLICT", errs[0].(map[string]interface{})["code"])

	code, _ = do(t, s, http.MethodPost, "/api/portfolio/stop", `{"stop":195}`)
	assert.Equal(t, http.StatusOK, code)

	code, resp = do(t, s, http.MethodPost, "/api/portfolio/exit", `{"price":210,"date":"2024-03-04"}`)
	require.Equal(t, http.StatusOK, code)
	trade := resp.Data.(map[string]interface{})["trade"].(map[string]interface{})
	assert.Equal(t, "MANUAL", trade["exit_reason"])
	assert.Equal(t, 5.0, trade["pnl_pct"])

	code, resp = do(t, s, http.MethodGet, "/api/trades?limit=5", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, resp.Data.(map[string]interface{})["total"])

	code, _ = do(t, s, http.MethodPost, "/api/portfolio/exit", `{"price":210}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestValidationErrors(t *testing.T) {
	s := newServer(t, nil)
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"enter without symbol", http.MethodPost, "/api/portfolio/enter", `{"price":10}`},
		{"enter bad direction", http.MethodPost, "/api/portfolio/enter", `{"symbol":"SPY","price":10,"direction":"SHORT"}`},
		{"exit bad reason", http.MethodPost, "/api/portfolio/exit", `{"price":10,"reason":"BORED"}`},
		{"capital zero", http.MethodPost, "/api/portfolio/capital", `{"cash":0}`},
		{"trades limit", http.MethodGet, "/api/trades?limit=5000", ""},
		{"backtest date", http.MethodPost, "/api/backtests", `{"start":"01/02/2024"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, resp.Data)
		})
	}
}

func TestSignalWithoutData(t *testing.T) {
	code, _ := do(t, newServer(t, nil), http.MethodPost, "/api/signal", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBacktestEndpoints(t *testing.T) {
	q := &stubQueue{}
	s := newServer(t, q)

	code, resp := do(t, s, http.MethodPost, "/api/backtests", `{"start":"2020-01-02","end":"2020-12-31"}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, 1, q.n)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "job-1", data["id"])
	assert.Equal(t, "queued", data["state"])
	assert.Equal(t, 100000.0, data["request"].(map[string]interface{})["capital"])

	code, resp = do(t, s, http.MethodGet, "/api/backtests/job-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "queued", resp.Data.(map[string]interface{})["state"])

	code, _ = do(t, s, http.MethodGet, "/api/backtests/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBacktestSubmitWithoutQueue(t *testing.T) {
	code, _ := do(t, newServer(t, nil), http.MethodPost, "/api/backtests", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestStagesReturnsMap(t *testing.T) {
	code, resp := do(t, newServer(t, nil), http.MethodGet, "/api/stages", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Data)
}
