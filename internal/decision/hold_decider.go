package decision

import (
	"context"

	"odta/internal/logger"
)

// HoldDecider is the fallback when no decision endpoint is configured. It
// proposes no actions and reports nothing, so the scheduler runs the full
// day on ledger-derived state. Useful for calendar and guardrail dry runs.
type HoldDecider struct{}

var _ Decider = HoldDecider{}

func (HoldDecider) PreMarket(ctx context.Context, snap SessionSnapshot) error {
	logger.Infof("HoldDecider: pre-market pass (date=%s)", snap.TradeDate)
	return nil
}

func (HoldDecider) RunCycle(ctx context.Context, snap SessionSnapshot) (CycleResult, error) {
	return CycleResult{PhaseLabel: "monitoring"}, nil
}

func (HoldDecider) EndOfDay(ctx context.Context, snap SessionSnapshot, stopReason string) error {
	logger.Infof("HoldDecider: end of day (reason=%s pnl=%.2f)", stopReason, snap.DailyPnL)
	return nil
}
