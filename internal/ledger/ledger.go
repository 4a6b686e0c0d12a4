package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"odta/internal/store/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Side is the direction of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// FillAction says whether a fill opens or closes a position.
type FillAction string

const (
	ActionEntry FillAction = "ENTRY"
	ActionExit  FillAction = "EXIT"
)

// ErrNoOpenPosition is returned by an EXIT fill that finds nothing to
// close. Callers report it and move on; it never aborts a session.
var ErrNoOpenPosition = errors.New("ledger: no open position for contract")

// ErrSessionExists guards against two schedulers sharing one ledger and
// trade date.
var ErrSessionExists = errors.New("ledger: session already started for trade date")

// Fill is one simulated execution to be applied to the ledger.
type Fill struct {
	TradeDate  string
	Symbol     string
	ContractID string
	Side       Side
	Quantity   int
	Price      float64
	Action     FillAction
	At         time.Time
}

// Position is a ledger row exposed to callers.
type Position struct {
	ID         int64      `json:"id"`
	TradeDate  string     `json:"trade_date"`
	Symbol     string     `json:"symbol"`
	ContractID string     `json:"contract_id"`
	Side       Side       `json:"side"`
	Quantity   int        `json:"quantity"`
	EntryPrice float64    `json:"entry_price"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	Status     string     `json:"status"`
	PnL        *float64   `json:"pnl,omitempty"`
}

// Snapshot is a point-in-time view of the day's book.
type Snapshot struct {
	Open        []Position `json:"open"`
	Closed      []Position `json:"closed"`
	RealizedPnL float64    `json:"realized_pnl"`
}

// Ledger owns the simulated positions for paper trading. Every fill is a
// single transaction, so a concurrent Snapshot never observes a position
// count inconsistent with its P&L.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// BeginSession registers the scheduler run for a trade date. A second
// session on the same date is rejected.
func (l *Ledger) BeginSession(ctx context.Context, sessionID, tradeDate, mode string) error {
	row := model.SessionModel{
		SessionID: sessionID,
		TradeDate: tradeDate,
		Mode:      mode,
		StartedAt: time.Now(),
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrSessionExists
		}
		return fmt.Errorf("ledger: begin session: %w", err)
	}
	return nil
}

// EndSession stamps the session row with its stop reason.
func (l *Ledger) EndSession(ctx context.Context, sessionID, stopReason string) error {
	now := time.Now()
	return l.db.WithContext(ctx).Model(&model.SessionModel{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"ended_at": &now, "stop_reason": stopReason}).Error
}

// RecordFill applies an accepted fill. ENTRY inserts a fresh OPEN row;
// EXIT closes the most recently opened OPEN row for the contract and
// realizes P&L = (exit - entry) * quantity.
func (l *Ledger) RecordFill(ctx context.Context, f Fill) error {
	switch f.Action {
	case ActionEntry:
		return l.recordEntry(ctx, f)
	case ActionExit:
		return l.recordExit(ctx, f)
	default:
		return fmt.Errorf("ledger: unknown fill action %q", f.Action)
	}
}

func (l *Ledger) recordEntry(ctx context.Context, f Fill) error {
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}
	row := model.PaperPositionModel{
		TradeDate:  f.TradeDate,
		Symbol:     f.Symbol,
		ContractID: f.ContractID,
		Side:       string(f.Side),
		Quantity:   f.Quantity,
		EntryPrice: f.Price,
		EntryTime:  at,
		Status:     model.PositionStatusOpen,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("ledger: record entry: %w", err)
	}
	return nil
}

func (l *Ledger) recordExit(ctx context.Context, f Fill) error {
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pos model.PaperPositionModel
		err := tx.Where("contract_id = ? AND status = ?", f.ContractID, model.PositionStatusOpen).
			Order("entry_time DESC").
			First(&pos).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoOpenPosition
		}
		if err != nil {
			return fmt.Errorf("ledger: lookup open position: %w", err)
		}
		pnl, _ := decimal.NewFromFloat(f.Price).
			Sub(decimal.NewFromFloat(pos.EntryPrice)).
			Mul(decimal.NewFromInt(int64(pos.Quantity))).
			Float64()
		return tx.Model(&pos).Updates(map[string]any{
			"exit_price": f.Price,
			"exit_time":  at,
			"status":     model.PositionStatusClosed,
			"pnl":        pnl,
		}).Error
	})
}

// Snapshot returns the day's open and closed positions plus the realized
// P&L total over closed rows. Calling it twice without intervening fills
// returns identical results.
func (l *Ledger) Snapshot(ctx context.Context, tradeDate string) (Snapshot, error) {
	var rows []model.PaperPositionModel
	if err := l.db.WithContext(ctx).
		Where("trade_date = ?", tradeDate).
		Order("entry_time ASC").
		Find(&rows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("ledger: snapshot: %w", err)
	}
	var snap Snapshot
	realized := decimal.Zero
	for _, row := range rows {
		pos := toPosition(row)
		if row.Status == model.PositionStatusOpen {
			snap.Open = append(snap.Open, pos)
			continue
		}
		snap.Closed = append(snap.Closed, pos)
		if row.PnL != nil {
			realized = realized.Add(decimal.NewFromFloat(*row.PnL))
		}
	}
	snap.RealizedPnL, _ = realized.Float64()
	return snap, nil
}

// OpenCount returns the number of OPEN rows for the trade date.
func (l *Ledger) OpenCount(ctx context.Context, tradeDate string) (int, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&model.PaperPositionModel{}).
		Where("trade_date = ? AND status = ?", tradeDate, model.PositionStatusOpen).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("ledger: open count: %w", err)
	}
	return int(count), nil
}

func toPosition(row model.PaperPositionModel) Position {
	return Position{
		ID:         row.ID,
		TradeDate:  row.TradeDate,
		Symbol:     row.Symbol,
		ContractID: row.ContractID,
		Side:       Side(row.Side),
		Quantity:   row.Quantity,
		EntryPrice: row.EntryPrice,
		EntryTime:  row.EntryTime,
		ExitPrice:  row.ExitPrice,
		ExitTime:   row.ExitTime,
		Status:     string(row.Status),
		PnL:        row.PnL,
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "constraint")
}
