package session

import (
	"fmt"
	"sync"
	"time"

	"odta/internal/decision"
)

// Phase is the scheduler's position in the trading day. Transitions only
// move forward: PRE_MARKET -> GATE_WAIT -> TRADING -> END_OF_DAY.
type Phase string

const (
	PhasePreMarket Phase = "PRE_MARKET"
	PhaseGateWait  Phase = "GATE_WAIT"
	PhaseTrading   Phase = "TRADING"
	PhaseEndOfDay  Phase = "END_OF_DAY"
)

var phaseOrder = map[Phase]int{
	PhasePreMarket: 0,
	PhaseGateWait:  1,
	PhaseTrading:   2,
	PhaseEndOfDay:  3,
}

// StopReason records why the session entered END_OF_DAY. Set exactly once.
type StopReason string

const (
	StopNone          StopReason = ""
	StopWeekend       StopReason = "weekend"
	StopMarketNotOpen StopReason = "market_not_open"
	StopMarketClosed  StopReason = "market_closed"
	StopSquareOff     StopReason = "square_off_time"
	StopMaxLoss       StopReason = "max_loss_breached"
	StopIterationCap  StopReason = "iteration_cap"
)

// Limits are the session's immutable guardrail thresholds, injected from
// configuration at session start.
type Limits struct {
	MaxDailyLoss     float64
	MaxOpenPositions int
	SquareOffTime    string
	MinInterval      time.Duration
	MaxInterval      time.Duration
}

// State is the authoritative mutable session record. The scheduler is its
// only writer; everyone else reads immutable snapshots. The lock exists so
// the audit HTTP handlers never observe a half-applied iteration.
type State struct {
	mu sync.RWMutex

	sessionID string
	tradeDate string
	mode      string
	limits    Limits

	phase           Phase
	dailyPnL        float64
	openCount       int
	monitorInterval time.Duration
	stopReason      StopReason
	iteration       int
	lastRejections  []string
}

// NewState starts a session in PRE_MARKET for the given trade date.
func NewState(sessionID, tradeDate, mode string, limits Limits, initialInterval time.Duration) *State {
	return &State{
		sessionID:       sessionID,
		tradeDate:       tradeDate,
		mode:            mode,
		limits:          limits,
		phase:           PhasePreMarket,
		monitorInterval: initialInterval,
	}
}

// Snapshot returns an immutable view for the decision step, the guardrail
// evaluator, and the audit surface.
func (s *State) Snapshot() decision.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rejections := make([]string, len(s.lastRejections))
	copy(rejections, s.lastRejections)
	return decision.SessionSnapshot{
		SessionID:        s.sessionID,
		TradeDate:        s.tradeDate,
		Phase:            string(s.phase),
		Mode:             s.mode,
		DailyPnL:         s.dailyPnL,
		OpenPositions:    s.openCount,
		MonitoringSec:    int(s.monitorInterval / time.Second),
		MaxDailyLoss:     s.limits.MaxDailyLoss,
		MaxOpenPositions: s.limits.MaxOpenPositions,
		SquareOffTime:    s.limits.SquareOffTime,
		Iteration:        s.iteration,
		LastRejections:   rejections,
	}
}

// Advance moves the session to the next phase. Backward transitions are a
// programming error and refuse loudly.
func (s *State) Advance(next Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if phaseOrder[next] <= phaseOrder[s.phase] {
		return fmt.Errorf("session: illegal phase transition %s -> %s", s.phase, next)
	}
	s.phase = next
	return nil
}

// Stop records the terminal reason. The first caller wins; any later
// attempt reports false and changes nothing.
func (s *State) Stop(reason StopReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopReason != StopNone {
		return false
	}
	s.stopReason = reason
	s.phase = PhaseEndOfDay
	return true
}

// ApplyReport folds one decision-cycle outcome into the state: reported
// P&L and open count (or ledger fallbacks resolved by the caller), the
// clamped pacing interval, and the iteration's guardrail rejections.
func (s *State) ApplyReport(pnl float64, openCount int, interval time.Duration, rejections []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyPnL = pnl
	s.openCount = openCount
	s.monitorInterval = clampInterval(interval, s.limits.MinInterval, s.limits.MaxInterval)
	s.lastRejections = rejections
	s.iteration++
}

func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *State) StopReason() StopReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopReason
}

func (s *State) DailyPnL() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dailyPnL
}

func (s *State) MonitorInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitorInterval
}

func (s *State) Iteration() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration
}

func (s *State) TradeDate() string { return s.tradeDate }

func (s *State) SessionID() string { return s.sessionID }

func clampInterval(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
