package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"odta/internal/audit"
	"odta/internal/broker"
	"odta/internal/config"
	"odta/internal/decision"
	"odta/internal/diary"
	"odta/internal/guard"
	"odta/internal/ledger"
	"odta/internal/market"
	"odta/internal/store/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noBans struct{}

func (noBans) IsBanned(context.Context, string, string) (bool, error) { return false, nil }

// fakeDecider scripts the decision service. The scheduler is strictly
// sequential, so plain counters are race-free.
type fakeDecider struct {
	preMarketCalls int
	cycleCalls     int
	endReason      string
	onCycle        func(call int, snap decision.SessionSnapshot) (decision.CycleResult, error)
}

func (f *fakeDecider) PreMarket(context.Context, decision.SessionSnapshot) error {
	f.preMarketCalls++
	return nil
}

func (f *fakeDecider) RunCycle(_ context.Context, snap decision.SessionSnapshot) (decision.CycleResult, error) {
	f.cycleCalls++
	if f.onCycle == nil {
		return decision.CycleResult{}, nil
	}
	return f.onCycle(f.cycleCalls, snap)
}

func (f *fakeDecider) EndOfDay(_ context.Context, _ decision.SessionSnapshot, stopReason string) error {
	f.endReason = stopReason
	return nil
}

type harness struct {
	sched   *Scheduler
	state   *State
	ledger  *ledger.Ledger
	decider *fakeDecider
}

func newHarness(t *testing.T, d *fakeDecider, now time.Time, maxIterations int) *harness {
	t.Helper()

	st, err := gormstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cal, err := market.NewCalendar(config.MarketConfig{
		Timezone:       "Asia/Kolkata",
		Open:           "09:15",
		Close:          "15:30",
		PreMarketStart: "08:45",
	}, "15:00")
	require.NoError(t, err)

	led := ledger.New(st.DB())
	state := NewState("sess-test", cal.TradeDate(now), "paper", Limits{
		MaxDailyLoss:     5000,
		MaxOpenPositions: 2,
		SquareOffTime:    "15:00",
		MinInterval:      time.Millisecond,
		MaxInterval:      time.Second,
	}, time.Millisecond)

	sched := NewScheduler(Params{
		State:         state,
		Calendar:      cal,
		Guard:         guard.NewEvaluator(cal, noBans{}),
		Ledger:        led,
		Decider:       d,
		Sink:          broker.NewPaperSink(led),
		Audit:         audit.NewLog(st.DB()),
		Diary:         diary.New(st.DB()),
		MaxIterations: maxIterations,
	})
	sched.nowFn = func() time.Time { return now }

	return &harness{sched: sched, state: state, ledger: led, decider: d}
}

func istInstant(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestRunWeekendSkipsTrading(t *testing.T) {
	d := &fakeDecider{}
	// 2025-09-06 is a Saturday.
	h := newHarness(t, d, istInstant(t, 2025, 9, 6, 11, 0), 300)

	require.NoError(t, h.sched.Run(context.Background()))

	assert.Equal(t, 1, d.preMarketCalls)
	assert.Equal(t, 0, d.cycleCalls)
	assert.Equal(t, string(StopWeekend), d.endReason)
	assert.Equal(t, StopWeekend, h.state.StopReason())
	assert.Equal(t, PhaseEndOfDay, h.state.Phase())
	assert.Equal(t, 0, h.state.Iteration())
}

func TestRunAfterCloseSkipsTrading(t *testing.T) {
	d := &fakeDecider{}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 16, 0), 300)

	require.NoError(t, h.sched.Run(context.Background()))
	assert.Equal(t, 0, d.cycleCalls)
	assert.Equal(t, StopMarketClosed, h.state.StopReason())
}

func TestRunStopsOnMaxLoss(t *testing.T) {
	pnl := -5200.0
	d := &fakeDecider{onCycle: func(int, decision.SessionSnapshot) (decision.CycleResult, error) {
		return decision.CycleResult{ReportedPnL: &pnl}, nil
	}}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 11, 0), 300)

	require.NoError(t, h.sched.Run(context.Background()))

	// The cycle that reported the breach completes; no further cycle runs.
	assert.Equal(t, 1, d.cycleCalls)
	assert.Equal(t, StopMaxLoss, h.state.StopReason())
	assert.Equal(t, string(StopMaxLoss), d.endReason)
	assert.Equal(t, -5200.0, h.state.DailyPnL())
}

func TestRunStopsOnIterationCap(t *testing.T) {
	d := &fakeDecider{}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 11, 0), 3)

	require.NoError(t, h.sched.Run(context.Background()))
	assert.Equal(t, 3, d.cycleCalls)
	assert.Equal(t, StopIterationCap, h.state.StopReason())
}

func TestRunStopsPastSquareOff(t *testing.T) {
	d := &fakeDecider{}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 15, 10), 300)

	require.NoError(t, h.sched.Run(context.Background()))

	// The decision step still ran once; the stop check fired after it.
	assert.Equal(t, 1, d.cycleCalls)
	assert.Equal(t, StopSquareOff, h.state.StopReason())
}

func TestRunRoutesAcceptedOrderToLedger(t *testing.T) {
	stopPnL := -9000.0
	d := &fakeDecider{onCycle: func(call int, snap decision.SessionSnapshot) (decision.CycleResult, error) {
		if call == 1 {
			return decision.CycleResult{Actions: []decision.ActionRequest{{
				Kind: decision.ActionPlace,
				Order: &decision.OrderArgs{
					ContractID: "RELIANCE25SEP2500CE",
					Symbol:     "RELIANCE",
					Side:       "BUY",
					Quantity:   250,
					Price:      45,
					Intent:     decision.IntentEntry,
				},
			}}}, nil
		}
		return decision.CycleResult{ReportedPnL: &stopPnL}, nil
	}}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 11, 0), 300)

	require.NoError(t, h.sched.Run(context.Background()))

	open, err := h.ledger.OpenCount(context.Background(), h.state.TradeDate())
	require.NoError(t, err)
	assert.Equal(t, 1, open)
	assert.Equal(t, 2, d.cycleCalls)
}

func TestRunSurfacesRejectionsToNextCycle(t *testing.T) {
	stopPnL := -9000.0
	var secondSnap decision.SessionSnapshot
	d := &fakeDecider{onCycle: func(call int, snap decision.SessionSnapshot) (decision.CycleResult, error) {
		if call == 1 {
			// An equity identifier never passes the instrument-class rule.
			return decision.CycleResult{Actions: []decision.ActionRequest{{
				Kind: decision.ActionPlace,
				Order: &decision.OrderArgs{
					ContractID: "RELIANCE",
					Symbol:     "RELIANCE",
					Side:       "BUY",
					Quantity:   250,
					Price:      45,
				},
			}}}, nil
		}
		secondSnap = snap
		return decision.CycleResult{ReportedPnL: &stopPnL}, nil
	}}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 11, 0), 300)

	require.NoError(t, h.sched.Run(context.Background()))

	open, err := h.ledger.OpenCount(context.Background(), h.state.TradeDate())
	require.NoError(t, err)
	assert.Equal(t, 0, open)

	require.Len(t, secondSnap.LastRejections, 1)
	assert.Contains(t, secondSnap.LastRejections[0], "options contract")
	assert.Equal(t, 1, secondSnap.Iteration)
}

func TestRunRecoversFromCycleError(t *testing.T) {
	stopPnL := -9000.0
	d := &fakeDecider{onCycle: func(call int, _ decision.SessionSnapshot) (decision.CycleResult, error) {
		if call == 1 {
			return decision.CycleResult{}, assert.AnError
		}
		return decision.CycleResult{ReportedPnL: &stopPnL}, nil
	}}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 11, 0), 300)

	require.NoError(t, h.sched.Run(context.Background()))
	assert.Equal(t, 2, d.cycleCalls)
	assert.Equal(t, StopMaxLoss, h.state.StopReason())
}

func TestRunHonorsCancellationDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &fakeDecider{onCycle: func(int, decision.SessionSnapshot) (decision.CycleResult, error) {
		interval := 600 // forces a long pacing wait
		cancel()
		return decision.CycleResult{ReportedInterval: &interval}, nil
	}}
	h := newHarness(t, d, istInstant(t, 2025, 9, 8, 11, 0), 300)

	err := h.sched.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, d.cycleCalls)
	assert.Equal(t, StopNone, h.state.StopReason())
}

func TestRunRejectsDuplicateTradeDate(t *testing.T) {
	d := &fakeDecider{}
	h := newHarness(t, d, istInstant(t, 2025, 9, 6, 11, 0), 300)

	require.NoError(t, h.sched.Run(context.Background()))

	second := NewState("sess-two", h.state.TradeDate(), "paper", Limits{
		MaxDailyLoss: 5000, MaxOpenPositions: 2, SquareOffTime: "15:00",
		MinInterval: time.Millisecond, MaxInterval: time.Second,
	}, time.Millisecond)
	h.sched.state = second

	err := h.sched.Run(context.Background())
	assert.ErrorIs(t, err, ledger.ErrSessionExists)
}
