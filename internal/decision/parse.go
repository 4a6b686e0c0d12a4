package decision

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseCycleResult turns the decision service's raw JSON response into a
// normalized CycleResult. The payload shape:
//
//	{
//	  "actions": [...],
//	  "daily_pnl": -1250.5,
//	  "open_positions_count": 1,
//	  "monitoring_interval_seconds": 90,
//	  "phase_label": "monitoring",
//	  "summary": "..."
//	}
//
// All report fields are optional. Action objects are validated against the
// action schema before normalization.
func ParseCycleResult(raw string) (CycleResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CycleResult{}, fmt.Errorf("decision: empty response")
	}
	if !gjson.Valid(raw) {
		return CycleResult{}, fmt.Errorf("decision: response is not valid JSON")
	}
	parsed := gjson.Parse(raw)

	var res CycleResult
	if v := parsed.Get("daily_pnl"); v.Exists() {
		pnl := v.Float()
		res.ReportedPnL = &pnl
	}
	if v := parsed.Get("open_positions_count"); v.Exists() {
		count := int(v.Int())
		res.ReportedOpenCount = &count
	}
	if v := firstOf(parsed, "monitoring_interval_seconds", "monitoring_interval"); v.Exists() {
		interval := int(v.Int())
		res.ReportedInterval = &interval
	}
	res.PhaseLabel = parsed.Get("phase_label").String()
	res.Summary = parsed.Get("summary").String()

	actions := parsed.Get("actions")
	if !actions.Exists() {
		return res, nil
	}
	if !actions.IsArray() {
		return CycleResult{}, fmt.Errorf("decision: actions must be an array")
	}

	var parseErr error
	idx := 0
	actions.ForEach(func(_, value gjson.Result) bool {
		idx++
		action, err := normalizeAction(idx, value)
		if err != nil {
			parseErr = err
			return false
		}
		res.Actions = append(res.Actions, action)
		return true
	})
	if parseErr != nil {
		return CycleResult{}, parseErr
	}
	return res, nil
}

func normalizeAction(idx int, value gjson.Result) (ActionRequest, error) {
	if err := validateActionNode(value.Raw); err != nil {
		return ActionRequest{}, fmt.Errorf("decision: action #%d: %w", idx, err)
	}
	kind := ActionKind(strings.ToUpper(strings.TrimSpace(value.Get("kind").String())))
	switch kind {
	case ActionPlace, ActionModify, ActionCancel:
		order, err := normalizeOrderArgs(value)
		if err != nil {
			return ActionRequest{}, fmt.Errorf("decision: action #%d (%s): %w", idx, kind, err)
		}
		return ActionRequest{Kind: kind, Order: order}, nil
	case ActionDiary:
		return ActionRequest{Kind: kind, Diary: normalizeDiaryArgs(value)}, nil
	default:
		return ActionRequest{}, fmt.Errorf("decision: action #%d: unknown kind %q", idx, value.Get("kind").String())
	}
}

// normalizeOrderArgs resolves the historical key-name variance of the
// upstream tool payloads (tradingsymbol vs symbol, transactiontype vs
// side, qty vs quantity) into the one OrderArgs schema.
func normalizeOrderArgs(value gjson.Result) (*OrderArgs, error) {
	contractID := strings.ToUpper(strings.TrimSpace(
		firstOf(value, "contract_id", "option_symbol", "tradingsymbol").String()))
	if contractID == "" {
		return nil, fmt.Errorf("missing contract identifier")
	}
	symbol := strings.ToUpper(strings.TrimSpace(
		firstOf(value, "symbol", "underlying").String()))
	side := strings.ToUpper(strings.TrimSpace(
		firstOf(value, "side", "transaction_type", "transactiontype").String()))
	if side != "BUY" && side != "SELL" {
		return nil, fmt.Errorf("invalid side %q", side)
	}
	qty := int(firstOf(value, "quantity", "qty").Int())
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	price := firstOf(value, "price", "limit_price").Float()
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive, got %v", price)
	}
	intent := OrderIntent(strings.ToUpper(strings.TrimSpace(
		firstOf(value, "intent", "action_intent").String())))
	if intent != IntentEntry && intent != IntentExit {
		// Default by side: buys open exposure, sells close it.
		if side == "BUY" {
			intent = IntentEntry
		} else {
			intent = IntentExit
		}
	}
	return &OrderArgs{
		ContractID: contractID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		Intent:     intent,
		Rationale:  value.Get("rationale").String(),
	}, nil
}

func normalizeDiaryArgs(value gjson.Result) *DiaryArgs {
	return &DiaryArgs{
		Symbol:         strings.TrimSpace(value.Get("symbol").String()),
		ContractID:     strings.ToUpper(strings.TrimSpace(firstOf(value, "contract_id", "option_symbol").String())),
		EntryRationale: value.Get("entry_rationale").String(),
		ExitRationale:  value.Get("exit_rationale").String(),
		Learnings:      value.Get("learnings").String(),
		Mistakes:       value.Get("mistakes").String(),
		Tags:           value.Get("tags").String(),
	}
}

func firstOf(value gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := value.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
