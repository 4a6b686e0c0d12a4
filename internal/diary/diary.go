package diary

import (
	"context"
	"fmt"

	"odta/internal/store/model"

	"gorm.io/gorm"
)

// Entry is one trade diary note. The decision step writes these alongside
// trades and the end-of-day summary adds one for the whole session.
type Entry struct {
	TradeDate      string `json:"trade_date"`
	Symbol         string `json:"symbol,omitempty"`
	ContractID     string `json:"contract_id,omitempty"`
	EntryRationale string `json:"entry_rationale,omitempty"`
	ExitRationale  string `json:"exit_rationale,omitempty"`
	Learnings      string `json:"learnings,omitempty"`
	Mistakes       string `json:"mistakes,omitempty"`
	DailySummary   string `json:"daily_summary,omitempty"`
	Tags           string `json:"tags,omitempty"`
}

// Diary stores free-text trading notes for later review.
type Diary struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Diary {
	return &Diary{db: db}
}

func (d *Diary) Write(ctx context.Context, e Entry) error {
	if e.TradeDate == "" {
		return fmt.Errorf("diary: trade date required")
	}
	row := model.DiaryEntryModel{
		TradeDate:      e.TradeDate,
		Symbol:         e.Symbol,
		ContractID:     e.ContractID,
		EntryRationale: e.EntryRationale,
		ExitRationale:  e.ExitRationale,
		Learnings:      e.Learnings,
		Mistakes:       e.Mistakes,
		DailySummary:   e.DailySummary,
		Tags:           e.Tags,
	}
	return d.db.WithContext(ctx).Create(&row).Error
}

// Read returns the most recent entries, newest first.
func (d *Diary) Read(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.DiaryEntryModel
	if err := d.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			TradeDate:      row.TradeDate,
			Symbol:         row.Symbol,
			ContractID:     row.ContractID,
			EntryRationale: row.EntryRationale,
			ExitRationale:  row.ExitRationale,
			Learnings:      row.Learnings,
			Mistakes:       row.Mistakes,
			DailySummary:   row.DailySummary,
			Tags:           row.Tags,
		})
	}
	return entries, nil
}
