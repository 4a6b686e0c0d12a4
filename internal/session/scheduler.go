package session

import (
	"context"
	"fmt"
	"time"

	"odta/internal/audit"
	"odta/internal/broker"
	"odta/internal/decision"
	"odta/internal/diary"
	"odta/internal/guard"
	"odta/internal/ledger"
	"odta/internal/logger"
	"odta/internal/market"
)

// Scheduler drives one trading day end to end: the pre-market step, the
// market-open gate, the paced decision loop, and the end-of-day summary.
// It is the sole writer of the session State and runs strictly
// sequentially; the only suspension points are the pre-open wait and the
// inter-iteration pacing wait, and cancellation is honored only there.
type Scheduler struct {
	state   *State
	cal     *market.Calendar
	guard   *guard.Evaluator
	ledger  *ledger.Ledger
	decider decision.Decider
	sink    broker.Sink
	audit   *audit.Log
	diary   *diary.Diary

	maxIterations int

	nowFn func() time.Time
}

// Params collects the scheduler's collaborators.
type Params struct {
	State         *State
	Calendar      *market.Calendar
	Guard         *guard.Evaluator
	Ledger        *ledger.Ledger
	Decider       decision.Decider
	Sink          broker.Sink
	Audit         *audit.Log
	Diary         *diary.Diary
	MaxIterations int
}

func NewScheduler(p Params) *Scheduler {
	s := &Scheduler{
		state:         p.State,
		cal:           p.Calendar,
		guard:         p.Guard,
		ledger:        p.Ledger,
		decider:       p.Decider,
		sink:          p.Sink,
		audit:         p.Audit,
		diary:         p.Diary,
		maxIterations: p.MaxIterations,
	}
	s.nowFn = s.cal.Now
	return s
}

// Run executes the whole session. It returns nil on a normal END_OF_DAY
// and the context error on operator cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	snap := s.state.Snapshot()
	if err := s.ledger.BeginSession(ctx, snap.SessionID, snap.TradeDate, snap.Mode); err != nil {
		return err
	}
	logger.Infof("Scheduler: session %s started date=%s mode=%s", snap.SessionID, snap.TradeDate, snap.Mode)

	s.runPreMarket(ctx)

	reason, err := s.gateWait(ctx)
	if err != nil {
		return err
	}
	if reason == StopNone {
		reason, err = s.tradingLoop(ctx)
		if err != nil {
			return err
		}
	}

	s.endOfDay(ctx, reason)
	return nil
}

func (s *Scheduler) runPreMarket(ctx context.Context) {
	s.recordTransition(PhasePreMarket, "session start")
	if err := s.decider.PreMarket(ctx, s.state.Snapshot()); err != nil {
		// Pre-market analysis is advisory; a failure must not stop the day.
		logger.Warnf("Scheduler: pre-market step failed: %v", err)
	}
}

// gateWait blocks until the market is open. A weekend or an already-closed
// market skips trading entirely and reports the stop reason.
func (s *Scheduler) gateWait(ctx context.Context) (StopReason, error) {
	if err := s.state.Advance(PhaseGateWait); err != nil {
		return StopNone, err
	}
	s.recordTransition(PhaseGateWait, "pre-market analysis complete")

	now := s.nowFn()
	switch s.cal.Classify(now) {
	case market.SessionWeekend:
		return StopWeekend, nil
	case market.SessionAfterClose:
		return StopMarketClosed, nil
	case market.SessionBeforeOpen:
		wait := s.cal.UntilOpen(now)
		logger.Infof("Scheduler: market opens in %s, waiting", wait)
		if err := s.sleep(ctx, wait); err != nil {
			return StopNone, err
		}
		// One re-check handles timer drift across the open boundary.
		now = s.nowFn()
		switch s.cal.Classify(now) {
		case market.SessionWeekend:
			return StopWeekend, nil
		case market.SessionAfterClose:
			return StopMarketClosed, nil
		case market.SessionBeforeOpen:
			if err := s.sleep(ctx, s.cal.UntilOpen(now)); err != nil {
				return StopNone, err
			}
		}
	}
	logger.Infof("Scheduler: market open, entering trading loop")
	return StopNone, nil
}

func (s *Scheduler) tradingLoop(ctx context.Context) (StopReason, error) {
	if err := s.state.Advance(PhaseTrading); err != nil {
		return StopNone, err
	}
	s.recordTransition(PhaseTrading, "market gate passed")

	for iter := 1; ; iter++ {
		snap := s.state.Snapshot()
		result, err := s.decider.RunCycle(ctx, snap)
		if err != nil {
			// Data or decision-service trouble is recoverable: keep the
			// previous state and let the stop checks decide.
			logger.Errorf("Scheduler: decision cycle %d failed: %v", iter, err)
			s.audit.Record(ctx, audit.Event{
				TradeDate:  snap.TradeDate,
				Phase:      string(PhaseTrading),
				ActionType: "cycle_error",
				Summary:    "decision cycle failed",
				Outcome:    err.Error(),
			})
			s.state.ApplyReport(snap.DailyPnL, snap.OpenPositions,
				time.Duration(snap.MonitoringSec)*time.Second, nil)
		} else {
			s.applyCycle(ctx, snap, result)
		}

		// Stop conditions run strictly after the decision step returns, so
		// the P&L checked is the value the step just reported.
		if reason := s.stopCheck(s.nowFn()); reason != StopNone {
			return reason, nil
		}
		if iter >= s.maxIterations {
			logger.Warnf("Scheduler: iteration cap %d reached, forcing end of day", s.maxIterations)
			return StopIterationCap, nil
		}
		if err := s.sleep(ctx, s.state.MonitorInterval()); err != nil {
			return StopNone, err
		}
	}
}

// applyCycle routes the cycle's proposed actions through the guardrail
// gate and folds the reported figures into the session state.
func (s *Scheduler) applyCycle(ctx context.Context, snap decision.SessionSnapshot, result decision.CycleResult) {
	var rejections []string
	for _, action := range result.Actions {
		if msg := s.submit(ctx, snap, action); msg != "" {
			rejections = append(rejections, msg)
		}
	}

	pnl, openCount := s.resolveFigures(ctx, snap, result)
	interval := time.Duration(snap.MonitoringSec) * time.Second
	if result.ReportedInterval != nil {
		interval = time.Duration(*result.ReportedInterval) * time.Second
	}
	s.state.ApplyReport(pnl, openCount, interval, rejections)

	if result.Summary != "" {
		s.audit.Record(ctx, audit.Event{
			TradeDate:  snap.TradeDate,
			Phase:      string(PhaseTrading),
			ActionType: "monitoring",
			Summary:    result.Summary,
			Reasoning:  result.PhaseLabel,
			DataPoints: map[string]any{"daily_pnl": pnl, "open_positions": openCount},
		})
	}
}

// submit is the one path from a proposed action to the order sink. The
// returned string is a non-empty rejection reason when the guard refused.
func (s *Scheduler) submit(ctx context.Context, snap decision.SessionSnapshot, action decision.ActionRequest) string {
	if action.Kind == decision.ActionDiary {
		s.writeDiary(ctx, snap.TradeDate, action.Diary)
		return ""
	}

	verdict := s.guard.Evaluate(ctx, s.nowFn(), action, snap)
	symbol, contractID := actionIdentity(action)
	if !verdict.Allowed {
		logger.Warnf("Scheduler: %s %s rejected (%s): %s", action.Kind, contractID, verdict.Violation, verdict.Reason)
		s.audit.Record(ctx, audit.Event{
			TradeDate:  snap.TradeDate,
			Phase:      string(PhaseTrading),
			ActionType: "guardrail_rejection",
			Symbol:     symbol,
			Summary:    fmt.Sprintf("%s %s rejected", action.Kind, contractID),
			Reasoning:  verdict.Reason,
			Outcome:    string(verdict.Violation),
		})
		return verdict.Reason
	}

	res, err := s.sink.Submit(ctx, snap.TradeDate, action)
	if err != nil {
		logger.Errorf("Scheduler: submit %s %s failed: %v", action.Kind, contractID, err)
		s.audit.Record(ctx, audit.Event{
			TradeDate:  snap.TradeDate,
			Phase:      string(PhaseTrading),
			ActionType: "submit_error",
			Symbol:     symbol,
			Summary:    fmt.Sprintf("%s %s failed at sink", action.Kind, contractID),
			Outcome:    err.Error(),
		})
		return fmt.Sprintf("submission failed: %v", err)
	}

	s.audit.Record(ctx, audit.Event{
		TradeDate:  snap.TradeDate,
		Phase:      string(PhaseTrading),
		ActionType: "fill",
		Symbol:     symbol,
		Summary:    fmt.Sprintf("%s %s %s", action.Kind, contractID, res.Status),
		Reasoning:  actionRationale(action),
		DataPoints: map[string]any{"order_id": res.OrderID, "price": res.FilledPrice},
		Outcome:    res.Status,
	})
	return ""
}

// resolveFigures prefers the decision step's reported P&L and open count
// and falls back to the ledger when the step stayed silent.
func (s *Scheduler) resolveFigures(ctx context.Context, snap decision.SessionSnapshot, result decision.CycleResult) (float64, int) {
	pnl := snap.DailyPnL
	if result.ReportedPnL != nil {
		pnl = *result.ReportedPnL
	} else if ls, err := s.ledger.Snapshot(ctx, snap.TradeDate); err == nil {
		pnl = ls.RealizedPnL
	} else {
		logger.Warnf("Scheduler: ledger snapshot failed, keeping previous P&L: %v", err)
	}

	openCount := snap.OpenPositions
	if result.ReportedOpenCount != nil {
		openCount = *result.ReportedOpenCount
	} else if n, err := s.ledger.OpenCount(ctx, snap.TradeDate); err == nil {
		openCount = n
	} else {
		logger.Warnf("Scheduler: ledger open count failed, keeping previous count: %v", err)
	}
	return pnl, openCount
}

// stopCheck evaluates the stop conditions in fixed priority order. The
// first true condition wins; later ones are not evaluated.
func (s *Scheduler) stopCheck(now time.Time) StopReason {
	switch s.cal.Classify(now) {
	case market.SessionWeekend:
		return StopWeekend
	case market.SessionBeforeOpen:
		return StopMarketNotOpen
	case market.SessionAfterClose:
		return StopMarketClosed
	}
	if s.cal.PastSquareOff(now) {
		return StopSquareOff
	}
	snap := s.state.Snapshot()
	if snap.DailyPnL <= -snap.MaxDailyLoss {
		return StopMaxLoss
	}
	return StopNone
}

func (s *Scheduler) endOfDay(ctx context.Context, reason StopReason) {
	if !s.state.Stop(reason) {
		logger.Warnf("Scheduler: stop reason already set, keeping %s", s.state.StopReason())
	}
	s.recordTransition(PhaseEndOfDay, string(reason))
	logger.Infof("Scheduler: end of day reason=%s pnl=%.2f iterations=%d",
		reason, s.state.DailyPnL(), s.state.Iteration())

	snap := s.state.Snapshot()
	if err := s.decider.EndOfDay(ctx, snap, string(reason)); err != nil {
		// Logged, not retried: the session ends either way.
		logger.Errorf("Scheduler: end-of-day summary failed: %v", err)
	}
	if s.diary != nil {
		entry := diary.Entry{
			TradeDate:    snap.TradeDate,
			DailySummary: fmt.Sprintf("session ended: reason=%s pnl=%.2f iterations=%d", reason, snap.DailyPnL, snap.Iteration),
		}
		if err := s.diary.Write(ctx, entry); err != nil {
			logger.Warnf("Scheduler: diary write failed: %v", err)
		}
	}
	if err := s.ledger.EndSession(ctx, snap.SessionID, string(reason)); err != nil {
		logger.Warnf("Scheduler: session close write failed: %v", err)
	}
}

func (s *Scheduler) writeDiary(ctx context.Context, tradeDate string, args *decision.DiaryArgs) {
	if s.diary == nil || args == nil {
		return
	}
	err := s.diary.Write(ctx, diary.Entry{
		TradeDate:      tradeDate,
		Symbol:         args.Symbol,
		ContractID:     args.ContractID,
		EntryRationale: args.EntryRationale,
		ExitRationale:  args.ExitRationale,
		Learnings:      args.Learnings,
		Mistakes:       args.Mistakes,
		Tags:           args.Tags,
	})
	if err != nil {
		logger.Warnf("Scheduler: diary write failed: %v", err)
	}
}

func (s *Scheduler) recordTransition(phase Phase, detail string) {
	s.audit.Record(context.Background(), audit.Event{
		TradeDate:  s.state.TradeDate(),
		Phase:      string(phase),
		ActionType: "phase_transition",
		Summary:    fmt.Sprintf("entered %s", phase),
		Reasoning:  detail,
	})
}

// sleep is a cooperative wait: it yields until the duration elapses or the
// context is cancelled. No state mutation is ever in flight here.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func actionIdentity(action decision.ActionRequest) (symbol, contractID string) {
	if action.Order != nil {
		return action.Order.Symbol, action.Order.ContractID
	}
	if action.Diary != nil {
		return action.Diary.Symbol, action.Diary.ContractID
	}
	return "", ""
}

func actionRationale(action decision.ActionRequest) string {
	if action.Order != nil {
		return action.Order.Rationale
	}
	return ""
}
