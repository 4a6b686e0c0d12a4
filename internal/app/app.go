package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"odta/internal/audit"
	"odta/internal/banlist"
	"odta/internal/broker"
	"odta/internal/config"
	"odta/internal/decision"
	"odta/internal/diary"
	"odta/internal/guard"
	"odta/internal/ledger"
	"odta/internal/logger"
	"odta/internal/market"
	"odta/internal/session"
	"odta/internal/store/gormstore"
	audithttp "odta/internal/transport/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// App wires one trading-day session: calendar, store, ledger, ban
// registry, guardrails, decision client, and the audit HTTP surface.
type App struct {
	cfg       *config.Config
	store     *gormstore.Store
	bans      *banlist.Registry
	scheduler *session.Scheduler
	server    *audithttp.Server
}

// NewApp builds the full component graph from configuration.
func NewApp(cfg *config.Config) (*App, error) {
	cal, err := market.NewCalendar(cfg.Market, cfg.Guardrails.SquareOffTime)
	if err != nil {
		return nil, err
	}

	store, err := gormstore.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := store.DB()
	led := ledger.New(db)
	bans := banlist.New(db)
	auditLog := audit.NewLog(db)
	tradeDiary := diary.New(db)

	if path := cfg.BanList.CSVPath; path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := bans.ImportCSV(context.Background(), path); err != nil {
				logger.Warnf("App: ban list import failed: %v", err)
			}
		}
	}

	evaluator := guard.NewEvaluator(cal, bans)

	var decider decision.Decider
	if cfg.Decision.Endpoint != "" {
		decider, err = decision.NewHTTPDecider(cfg.Decision)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warnf("App: no decision endpoint configured, using hold decider")
		decider = decision.HoldDecider{}
	}

	var sink broker.Sink
	if cfg.App.IsPaper() {
		sink = broker.NewPaperSink(led)
	} else {
		sink = broker.LiveSink{}
	}

	now := cal.Now()
	state := session.NewState(
		uuid.NewString(),
		cal.TradeDate(now),
		cfg.App.Mode,
		session.Limits{
			MaxDailyLoss:     cfg.Guardrails.MaxDailyLoss,
			MaxOpenPositions: cfg.Guardrails.MaxOpenPositions,
			SquareOffTime:    cfg.Guardrails.SquareOffTime,
			MinInterval:      time.Duration(cfg.Guardrails.MinIntervalSec) * time.Second,
			MaxInterval:      time.Duration(cfg.Guardrails.MaxIntervalSec) * time.Second,
		},
		time.Duration(cfg.Guardrails.MonitorIntervalSec)*time.Second,
	)

	scheduler := session.NewScheduler(session.Params{
		State:         state,
		Calendar:      cal,
		Guard:         evaluator,
		Ledger:        led,
		Decider:       decider,
		Sink:          sink,
		Audit:         auditLog,
		Diary:         tradeDiary,
		MaxIterations: cfg.Guardrails.MaxIterations,
	})

	server, err := audithttp.NewServer(audithttp.ServerConfig{
		Addr:         cfg.App.HTTPAddr,
		State:        state,
		Ledger:       led,
		Audit:        auditLog,
		RiskFreeRate: cfg.Market.RiskFreeRate,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		store:     store,
		bans:      bans,
		scheduler: scheduler,
		server:    server,
	}, nil
}

// Run executes the session alongside the audit HTTP server and the
// optional ban-list watcher. When the session ends, everything else is
// wound down.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, gctx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		defer cancel()
		return a.scheduler.Run(gctx)
	})
	group.Go(func() error {
		return a.server.Run(gctx)
	})
	if a.cfg.BanList.Watch && a.cfg.BanList.CSVPath != "" {
		group.Go(func() error {
			err := a.bans.Watch(gctx, a.cfg.BanList.CSVPath)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases the database connection.
func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}
