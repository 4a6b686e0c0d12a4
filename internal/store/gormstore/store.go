package gormstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"odta/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// Store wraps the Gorm + SQLite connection shared by the ledger, ban
// registry, audit log, and diary.
type Store struct {
	db *gorm.DB
}

// Open initializes the SQLite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	// DriverName "sqlite" selects the pure-Go modernc driver; the _pragma
	// query syntax below is specific to it.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.PaperPositionModel{},
		&model.DecisionLogModel{},
		&model.BanEntryModel{},
		&model.DiaryEntryModel{},
		&model.SessionModel{},
	); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a little read parallelism for the audit HTTP
	// endpoints while keeping writer lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// DB exposes the underlying *gorm.DB for the domain stores.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
