package decision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"odta/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDeciderRunCycle(t *testing.T) {
	var gotPath string
	var gotReq cycleRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"actions": [{"kind": "PLACE", "contract_id": "NIFTY30OCT24800PE",
				"side": "SELL", "quantity": 75, "price": 120}],
			"daily_pnl": 300,
			"summary": "exited half"
		}`))
	}))
	defer ts.Close()

	d, err := NewHTTPDecider(config.DecisionConfig{Endpoint: ts.URL, TimeoutSeconds: 5})
	require.NoError(t, err)

	snap := SessionSnapshot{SessionID: "s1", TradeDate: "2025-09-08", Phase: "TRADING"}
	res, err := d.RunCycle(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, "/cycle", gotPath)
	assert.Equal(t, "s1", gotReq.Snapshot.SessionID)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionPlace, res.Actions[0].Kind)
	require.NotNil(t, res.ReportedPnL)
	assert.Equal(t, 300.0, *res.ReportedPnL)
}

func TestHTTPDeciderEndOfDayCarriesReason(t *testing.T) {
	var gotReq eodRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	d, err := NewHTTPDecider(config.DecisionConfig{Endpoint: ts.URL})
	require.NoError(t, err)

	err = d.EndOfDay(context.Background(), SessionSnapshot{TradeDate: "2025-09-08"}, "max_loss_breached")
	require.NoError(t, err)
	assert.Equal(t, "max_loss_breached", gotReq.StopReason)
}

func TestHTTPDeciderSurfacesHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer ts.Close()

	d, err := NewHTTPDecider(config.DecisionConfig{Endpoint: ts.URL})
	require.NoError(t, err)

	_, err = d.RunCycle(context.Background(), SessionSnapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPDeciderBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer ts.Close()

	d, err := NewHTTPDecider(config.DecisionConfig{Endpoint: ts.URL})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = d.RunCycle(context.Background(), SessionSnapshot{})
		require.Error(t, err)
	}

	_, err = d.RunCycle(context.Background(), SessionSnapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestNewHTTPDeciderRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPDecider(config.DecisionConfig{})
	assert.Error(t, err)
}
