package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"odta/internal/audit"
	"odta/internal/ledger"
	"odta/internal/session"
	"odta/internal/store/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *ledger.Ledger, *audit.Log) {
	t.Helper()
	st, err := gormstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	led := ledger.New(st.DB())
	log := audit.NewLog(st.DB())
	state := session.NewState("sess-http", "2025-09-08", "paper", session.Limits{
		MaxDailyLoss:     5000,
		MaxOpenPositions: 2,
		SquareOffTime:    "15:00",
		MinInterval:      30 * time.Second,
		MaxInterval:      600 * time.Second,
	}, 120*time.Second)

	srv, err := NewServer(ServerConfig{State: state, Ledger: led, Audit: log, RiskFreeRate: 0.07})
	require.NoError(t, err)
	return srv, led, log
}

func get(t *testing.T, srv *Server, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthz(t *testing.T) {
	srv, _, _ := testServer(t)
	code, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestSessionEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)
	code, body := get(t, srv, "/api/session")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2025-09-08", body["trade_date"])
	assert.Equal(t, "PRE_MARKET", body["phase"])
	assert.Equal(t, 5000.0, body["max_daily_loss"])
}

func TestPositionsEndpoint(t *testing.T) {
	srv, led, _ := testServer(t)
	require.NoError(t, led.RecordFill(context.Background(), ledger.Fill{
		TradeDate:  "2025-09-08",
		Symbol:     "RELIANCE",
		ContractID: "RELIANCE25SEP2500CE",
		Side:       ledger.SideBuy,
		Quantity:   250,
		Price:      45,
		Action:     ledger.ActionEntry,
	}))

	code, body := get(t, srv, "/api/positions?date=2025-09-08")
	assert.Equal(t, http.StatusOK, code)
	open, ok := body["open"].([]any)
	require.True(t, ok)
	assert.Len(t, open, 1)
	assert.Equal(t, 0.0, body["realized_pnl"])
}

func TestDecisionsEndpoint(t *testing.T) {
	srv, _, log := testServer(t)
	log.Record(context.Background(), audit.Event{
		TradeDate:  "2025-09-08",
		Phase:      "TRADING",
		ActionType: "guardrail_rejection",
		Summary:    "PLACE RELIANCE rejected",
	})

	code, body := get(t, srv, "/api/decisions")
	assert.Equal(t, http.StatusOK, code)
	rows, ok := body["decisions"].([]any)
	require.True(t, ok)
	assert.Len(t, rows, 1)
}

func TestGreeksEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)

	code, body := get(t, srv, "/api/greeks?spot=2450&strike=2500&days_to_expiry=10&premium=45&option_type=CE")
	assert.Equal(t, http.StatusOK, code)
	iv, ok := body["iv"].(float64)
	require.True(t, ok)
	assert.Greater(t, iv, 0.01)
	delta, ok := body["delta"].(float64)
	require.True(t, ok)
	assert.Greater(t, delta, 0.0)
	assert.Less(t, delta, 1.0)
}

func TestGreeksEndpointRejectsBadInput(t *testing.T) {
	srv, _, _ := testServer(t)

	code, _ := get(t, srv, "/api/greeks?spot=lots&strike=2500&days_to_expiry=10&premium=45&option_type=CE")
	assert.Equal(t, http.StatusBadRequest, code)

	// Structurally valid numbers, domain-invalid values.
	code, _ = get(t, srv, "/api/greeks?spot=0&strike=2500&days_to_expiry=10&premium=45&option_type=CE")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
