package guard

import (
	"context"
	"fmt"
	"time"

	"odta/internal/decision"
	"odta/internal/logger"
	"odta/internal/market"
	"odta/internal/pkg/contract"
)

// Violation identifies which guardrail rejected an action.
type Violation string

const (
	ViolationLossLimit       Violation = "loss_limit"
	ViolationPositionLimit   Violation = "position_limit"
	ViolationSquareOff       Violation = "square_off"
	ViolationInstrumentClass Violation = "wrong_instrument_class"
	ViolationBannedSecurity  Violation = "banned_security"
)

// Decision is the evaluator's verdict on one proposed action. Produced
// fresh per evaluation; rejections are routine values, never errors.
type Decision struct {
	Allowed   bool
	Violation Violation
	Reason    string
}

func accept() Decision { return Decision{Allowed: true} }

func reject(v Violation, format string, args ...any) Decision {
	return Decision{Violation: v, Reason: fmt.Sprintf(format, args...)}
}

// BanChecker is the registry of underlyings banned for a trade date.
type BanChecker interface {
	IsBanned(ctx context.Context, contractID, tradeDate string) (bool, error)
}

// Evaluator is the stateless admission-control gate between the decision
// step's proposals and the order-submission sink. Every PLACE/MODIFY goes
// through Evaluate; there is no bypass path.
type Evaluator struct {
	cal  *market.Calendar
	bans BanChecker
}

func NewEvaluator(cal *market.Calendar, bans BanChecker) *Evaluator {
	return &Evaluator{cal: cal, bans: bans}
}

// Evaluate applies the hard guardrails in fixed order, short-circuiting on
// the first violation. Non-order action kinds pass through unconditionally.
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time, action decision.ActionRequest, snap decision.SessionSnapshot) Decision {
	if action.Kind != decision.ActionPlace && action.Kind != decision.ActionModify {
		return accept()
	}
	order := action.Order
	if order == nil {
		return reject(ViolationInstrumentClass, "order action without order arguments")
	}

	// Rule 1: daily loss limit, PLACE and MODIFY alike.
	if snap.DailyPnL <= -snap.MaxDailyLoss {
		return reject(ViolationLossLimit,
			"daily loss limit (%.0f) breached, current P&L %.2f: no further trading allowed",
			snap.MaxDailyLoss, snap.DailyPnL)
	}

	// Rule 2: position count, new orders only.
	if action.Kind == decision.ActionPlace && snap.OpenPositions >= snap.MaxOpenPositions {
		return reject(ViolationPositionLimit,
			"max positions (%d) already open: close an existing position first",
			snap.MaxOpenPositions)
	}

	// Rule 3: past square-off, no new BUY exposure. Sells stay allowed so
	// existing risk can always be reduced.
	if order.Side == "BUY" && e.cal.PastSquareOff(now) {
		return reject(ViolationSquareOff,
			"past square-off time (%s): no new BUY orders allowed", e.cal.SquareOffTime())
	}

	// Rule 4: options only. Equities and anything else that does not
	// resolve to a CE/PE contract are categorically disallowed.
	parsed, ok := contract.Parse(order.ContractID)
	if !ok {
		return reject(ViolationInstrumentClass,
			"%s is not a recognized options contract: only CE/PE instruments are tradeable", order.ContractID)
	}

	// Rule 5: venue ban list for the trade date.
	banned, err := e.bans.IsBanned(ctx, order.ContractID, snap.TradeDate)
	if err != nil {
		// A registry read failure must not halt trading; log and fall
		// through to acceptance like any other persistence failure.
		logger.Warnf("Guard: ban registry lookup failed for %s: %v", order.ContractID, err)
	}
	if banned {
		return reject(ViolationBannedSecurity,
			"%s is in the F&O ban list: cannot trade banned securities", parsed.Underlying)
	}

	return accept()
}
