package decision

import "context"

// ActionKind tags a normalized ActionRequest. PLACE and MODIFY are
// order-like and pass through the guardrail evaluator; everything else is
// admitted unconditionally.
type ActionKind string

const (
	ActionPlace  ActionKind = "PLACE"
	ActionModify ActionKind = "MODIFY"
	ActionCancel ActionKind = "CANCEL"
	ActionDiary  ActionKind = "DIARY"
)

// OrderIntent says whether an order-like action opens or closes exposure.
type OrderIntent string

const (
	IntentEntry OrderIntent = "ENTRY"
	IntentExit  OrderIntent = "EXIT"
)

// OrderArgs is the normalized schema for PLACE/MODIFY/CANCEL actions.
// Key-name variance in the raw payload (symbol vs tradingsymbol, qty vs
// quantity) is resolved once at the parse boundary, never downstream.
type OrderArgs struct {
	ContractID string      `json:"contract_id"`
	Symbol     string      `json:"symbol"`
	Side       string      `json:"side"` // BUY | SELL
	Quantity   int         `json:"quantity"`
	Price      float64     `json:"price"`
	Intent     OrderIntent `json:"intent"`
	Rationale  string      `json:"rationale,omitempty"`
}

// DiaryArgs carries a free-text diary note proposed by the decision step.
type DiaryArgs struct {
	Symbol         string `json:"symbol,omitempty"`
	ContractID     string `json:"contract_id,omitempty"`
	EntryRationale string `json:"entry_rationale,omitempty"`
	ExitRationale  string `json:"exit_rationale,omitempty"`
	Learnings      string `json:"learnings,omitempty"`
	Mistakes       string `json:"mistakes,omitempty"`
	Tags           string `json:"tags,omitempty"`
}

// ActionRequest is one proposed action, tagged by kind. Exactly one of
// Order/Diary is set, matching the kind.
type ActionRequest struct {
	Kind  ActionKind
	Order *OrderArgs
	Diary *DiaryArgs
}

// CycleResult is the decision step's single response for one TRADING
// iteration. Reported fields are nil when the step did not supply them;
// the scheduler then falls back to ledger-derived values.
type CycleResult struct {
	Actions           []ActionRequest
	ReportedPnL       *float64
	ReportedOpenCount *int
	ReportedInterval  *int // seconds, clamped by the scheduler
	PhaseLabel        string
	Summary           string
}

// SessionSnapshot is the immutable session view handed to the decision
// step and the guardrail evaluator. Built fresh per iteration; a reader
// never observes a partially updated state.
type SessionSnapshot struct {
	SessionID        string   `json:"session_id"`
	TradeDate        string   `json:"trade_date"`
	Phase            string   `json:"phase"`
	Mode             string   `json:"mode"`
	DailyPnL         float64  `json:"daily_pnl"`
	OpenPositions    int      `json:"open_positions_count"`
	MonitoringSec    int      `json:"monitoring_interval_seconds"`
	MaxDailyLoss     float64  `json:"max_daily_loss"`
	MaxOpenPositions int      `json:"max_open_positions"`
	SquareOffTime    string   `json:"square_off_time"`
	Iteration        int      `json:"iteration"`
	LastRejections   []string `json:"last_rejections,omitempty"`
}

// Decider is the external decision-making service, consumed as an opaque
// black box: one request/response exchange per phase invocation.
type Decider interface {
	// PreMarket runs the one-shot pre-market analysis.
	PreMarket(ctx context.Context, snap SessionSnapshot) error
	// RunCycle performs one trading-loop iteration and proposes actions.
	RunCycle(ctx context.Context, snap SessionSnapshot) (CycleResult, error)
	// EndOfDay produces the closing summary for the stop reason.
	EndOfDay(ctx context.Context, snap SessionSnapshot, stopReason string) error
}
