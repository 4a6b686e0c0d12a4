package audit

import (
	"context"
	"encoding/json"
	"time"

	"odta/internal/logger"
	"odta/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is one structured audit record: a phase transition, a guardrail
// rejection, a fill, or a decision-step rationale. External reporting
// consumes these rows; the core never reads them back.
type Event struct {
	TradeDate  string
	Phase      string
	ActionType string
	Symbol     string
	Summary    string
	Reasoning  string
	DataPoints map[string]any
	Outcome    string
}

// Log persists audit events. A failed write is logged and swallowed:
// losing durability for one cycle must not halt trading.
type Log struct {
	db *gorm.DB
}

func NewLog(db *gorm.DB) *Log {
	return &Log{db: db}
}

// Record writes one event. Never returns an error to the caller.
func (l *Log) Record(ctx context.Context, evt Event) {
	var data datatypes.JSON
	if len(evt.DataPoints) > 0 {
		if raw, err := json.Marshal(evt.DataPoints); err == nil {
			data = datatypes.JSON(raw)
		}
	}
	row := model.DecisionLogModel{
		Timestamp:  time.Now(),
		TradeDate:  evt.TradeDate,
		Phase:      evt.Phase,
		ActionType: evt.ActionType,
		Symbol:     evt.Symbol,
		Summary:    evt.Summary,
		Reasoning:  evt.Reasoning,
		DataPoints: data,
		Outcome:    evt.Outcome,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Errorf("AuditLog: write failed (%s/%s): %v", evt.Phase, evt.ActionType, err)
	}
}

// Recent returns the newest events for a trade date, newest first.
func (l *Log) Recent(ctx context.Context, tradeDate string, limit int) ([]model.DecisionLogModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.DecisionLogModel
	err := l.db.WithContext(ctx).
		Where("trade_date = ?", tradeDate).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
