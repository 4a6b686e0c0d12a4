package banlist

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"odta/internal/logger"
	"odta/internal/store/model"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry answers "is this underlying banned today" against the venue's
// published F&O ban list, persisted per date.
type Registry struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// IsBanned reports whether the contract identifier starts with any banned
// underlying for the trade date. Prefix matching follows the venue feed,
// which publishes bare underlyings while orders carry full contract IDs.
func (r *Registry) IsBanned(ctx context.Context, contractID, tradeDate string) (bool, error) {
	var symbols []string
	err := r.db.WithContext(ctx).Model(&model.BanEntryModel{}).
		Where("ban_date = ?", tradeDate).
		Pluck("symbol", &symbols).Error
	if err != nil {
		return false, fmt.Errorf("ban registry: query: %w", err)
	}
	id := strings.ToUpper(strings.TrimSpace(contractID))
	for _, s := range symbols {
		if s != "" && strings.HasPrefix(id, strings.ToUpper(s)) {
			return true, nil
		}
	}
	return false, nil
}

// Add inserts one banned underlying for a date. Duplicate entries are
// ignored.
func (r *Registry) Add(ctx context.Context, symbol, tradeDate string) error {
	row := model.BanEntryModel{
		Symbol:  strings.ToUpper(strings.TrimSpace(symbol)),
		BanDate: tradeDate,
	}
	if row.Symbol == "" {
		return fmt.Errorf("ban registry: empty symbol")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// ImportCSV loads a "symbol,ban_date" file into the registry. Rows for
// dates present in the file replace any previous entries for those dates,
// so a republished intraday list fully supersedes the morning one.
func (r *Registry) ImportCSV(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ban registry: open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	var entries []model.BanEntryModel
	dates := make(map[string]bool)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("ban registry: read csv: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(record[0]))
		date := strings.TrimSpace(record[1])
		if symbol == "" || symbol == "SYMBOL" || date == "" {
			continue
		}
		entries = append(entries, model.BanEntryModel{Symbol: symbol, BanDate: date})
		dates[date] = true
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for date := range dates {
			if err := tx.Where("ban_date = ?", date).Delete(&model.BanEntryModel{}).Error; err != nil {
				return err
			}
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
	})
}

// Watch re-imports the CSV whenever it changes on disk. Blocks until the
// context is cancelled; call in its own goroutine.
func (r *Registry) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ban registry: watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("ban registry: watch %s: %w", path, err)
	}
	logger.Infof("BanRegistry: watching %s", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.ImportCSV(ctx, path); err != nil {
				logger.Errorf("BanRegistry: reload failed: %v", err)
				continue
			}
			logger.Infof("BanRegistry: reloaded from %s", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("BanRegistry: watch error: %v", err)
		}
	}
}
