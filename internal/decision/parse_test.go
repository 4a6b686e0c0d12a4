package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCycleResultReportFields(t *testing.T) {
	res, err := ParseCycleResult(`{
		"daily_pnl": -1250.5,
		"open_positions_count": 1,
		"monitoring_interval_seconds": 90,
		"phase_label": "monitoring",
		"summary": "holding one position"
	}`)
	require.NoError(t, err)

	require.NotNil(t, res.ReportedPnL)
	assert.Equal(t, -1250.5, *res.ReportedPnL)
	require.NotNil(t, res.ReportedOpenCount)
	assert.Equal(t, 1, *res.ReportedOpenCount)
	require.NotNil(t, res.ReportedInterval)
	assert.Equal(t, 90, *res.ReportedInterval)
	assert.Equal(t, "monitoring", res.PhaseLabel)
	assert.Empty(t, res.Actions)
}

func TestParseCycleResultOmittedFieldsStayNil(t *testing.T) {
	res, err := ParseCycleResult(`{"summary": "no changes"}`)
	require.NoError(t, err)
	assert.Nil(t, res.ReportedPnL)
	assert.Nil(t, res.ReportedOpenCount)
	assert.Nil(t, res.ReportedInterval)
}

func TestParseCycleResultNormalizesKeyVariance(t *testing.T) {
	res, err := ParseCycleResult(`{"actions": [{
		"kind": "place",
		"tradingsymbol": "reliance25sep2500ce",
		"underlying": "reliance",
		"transactiontype": "buy",
		"qty": 250,
		"limit_price": 45.5
	}]}`)
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)

	a := res.Actions[0]
	assert.Equal(t, ActionPlace, a.Kind)
	require.NotNil(t, a.Order)
	assert.Equal(t, "RELIANCE25SEP2500CE", a.Order.ContractID)
	assert.Equal(t, "RELIANCE", a.Order.Symbol)
	assert.Equal(t, "BUY", a.Order.Side)
	assert.Equal(t, 250, a.Order.Quantity)
	assert.Equal(t, 45.5, a.Order.Price)
	assert.Equal(t, IntentEntry, a.Order.Intent)
}

func TestParseCycleResultIntentDefaultsBySide(t *testing.T) {
	res, err := ParseCycleResult(`{"actions": [{
		"kind": "PLACE",
		"contract_id": "NIFTY30OCT24800PE",
		"side": "SELL",
		"quantity": 75,
		"price": 120
	}]}`)
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, IntentExit, res.Actions[0].Order.Intent)
}

func TestParseCycleResultDiaryAction(t *testing.T) {
	res, err := ParseCycleResult(`{"actions": [{
		"kind": "DIARY",
		"symbol": "RELIANCE",
		"learnings": "entered too early",
		"tags": "timing"
	}]}`)
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)

	a := res.Actions[0]
	assert.Equal(t, ActionDiary, a.Kind)
	require.NotNil(t, a.Diary)
	assert.Equal(t, "entered too early", a.Diary.Learnings)
	assert.Nil(t, a.Order)
}

func TestParseCycleResultRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"not json":         "monitoring ok",
		"actions not list": `{"actions": {"kind": "PLACE"}}`,
		"unknown kind":     `{"actions": [{"kind": "TELEPORT"}]}`,
		"missing contract": `{"actions": [{"kind": "PLACE", "side": "BUY", "quantity": 1, "price": 1}]}`,
		"bad side":         `{"actions": [{"kind": "PLACE", "contract_id": "X25SEP100CE", "side": "HOLD", "quantity": 1, "price": 1}]}`,
		"zero quantity":    `{"actions": [{"kind": "PLACE", "contract_id": "X25SEP100CE", "side": "BUY", "quantity": 0, "price": 1}]}`,
		"zero price":       `{"actions": [{"kind": "PLACE", "contract_id": "X25SEP100CE", "side": "BUY", "quantity": 1, "price": 0}]}`,
		"schema violation": `{"actions": [{"kind": "PLACE", "contract_id": "X25SEP100CE", "side": "BUY", "quantity": "lots", "price": 1}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCycleResult(raw)
			assert.Error(t, err)
		})
	}
}
