package model

import (
	"time"

	"gorm.io/datatypes"
)

// PositionStatus is the lifecycle state of a paper position row.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// PaperPositionModel is one simulated fill lifecycle. Rows are append-only:
// an ENTRY inserts, the matching EXIT mutates the row once, nothing deletes.
type PaperPositionModel struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	TradeDate  string         `gorm:"column:trade_date;index"`
	Symbol     string         `gorm:"column:symbol"`
	ContractID string         `gorm:"column:contract_id;index"`
	Side       string         `gorm:"column:side"` // BUY | SELL
	Quantity   int            `gorm:"column:quantity"`
	EntryPrice float64        `gorm:"column:entry_price"`
	EntryTime  time.Time      `gorm:"column:entry_time"`
	ExitPrice  *float64       `gorm:"column:exit_price"`
	ExitTime   *time.Time     `gorm:"column:exit_time"`
	Status     PositionStatus `gorm:"column:status;index"`
	PnL        *float64       `gorm:"column:pnl"`
}

func (PaperPositionModel) TableName() string { return "paper_positions" }

// DecisionLogModel is one structured audit record: a phase transition, a
// guardrail rejection, a fill, or a decision-step rationale.
type DecisionLogModel struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	Timestamp  time.Time      `gorm:"column:timestamp"`
	TradeDate  string         `gorm:"column:trade_date;index"`
	Phase      string         `gorm:"column:phase"`
	ActionType string         `gorm:"column:action_type"`
	Symbol     string         `gorm:"column:symbol"`
	Summary    string         `gorm:"column:summary"`
	Reasoning  string         `gorm:"column:reasoning"`
	DataPoints datatypes.JSON `gorm:"column:data_points;type:TEXT"`
	Outcome    string         `gorm:"column:outcome"`
}

func (DecisionLogModel) TableName() string { return "decision_log" }

// BanEntryModel is one banned underlying for one trade date, mirroring the
// venue's published F&O ban list.
type BanEntryModel struct {
	ID      int64  `gorm:"column:id;primaryKey"`
	Symbol  string `gorm:"column:symbol;uniqueIndex:idx_ban_symbol_date,priority:1"`
	BanDate string `gorm:"column:ban_date;uniqueIndex:idx_ban_symbol_date,priority:2"`
}

func (BanEntryModel) TableName() string { return "ban_list" }

// DiaryEntryModel is a free-text trade diary row written by the decision
// step and at end of day.
type DiaryEntryModel struct {
	ID             int64  `gorm:"column:id;primaryKey"`
	TradeDate      string `gorm:"column:trade_date;index"`
	Symbol         string `gorm:"column:symbol"`
	ContractID     string `gorm:"column:contract_id"`
	EntryRationale string `gorm:"column:entry_rationale"`
	ExitRationale  string `gorm:"column:exit_rationale"`
	Learnings      string `gorm:"column:learnings"`
	Mistakes       string `gorm:"column:mistakes"`
	DailySummary   string `gorm:"column:daily_summary"`
	Tags           string `gorm:"column:tags"`
	CreatedAt      time.Time
}

func (DiaryEntryModel) TableName() string { return "trade_diary" }

// SessionModel records one scheduler run per trade date. The unique index
// on trade_date rejects a second scheduler sharing a ledger for the same
// day.
type SessionModel struct {
	ID         int64      `gorm:"column:id;primaryKey"`
	SessionID  string     `gorm:"column:session_id;uniqueIndex"`
	TradeDate  string     `gorm:"column:trade_date;uniqueIndex"`
	Mode       string     `gorm:"column:mode"`
	StartedAt  time.Time  `gorm:"column:started_at"`
	EndedAt    *time.Time `gorm:"column:ended_at"`
	StopReason string     `gorm:"column:stop_reason"`
}

func (SessionModel) TableName() string { return "sessions" }
