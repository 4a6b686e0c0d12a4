package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// validate runs the startup checks. Every failure here is fatal: a session
// must never start with broken guardrails or calendar bounds.
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Guardrails.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	mode := strings.TrimSpace(a.Mode)
	if mode != "paper" && mode != "live" {
		return fmt.Errorf("app.mode must be \"paper\" or \"live\", got %q", a.Mode)
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if _, err := time.LoadLocation(m.Timezone); err != nil {
		return fmt.Errorf("market.timezone %q: %w", m.Timezone, err)
	}
	open, err := ParseWallClock(m.Open)
	if err != nil {
		return fmt.Errorf("market.open: %w", err)
	}
	close, err := ParseWallClock(m.Close)
	if err != nil {
		return fmt.Errorf("market.close: %w", err)
	}
	if !open.Before(close) {
		return fmt.Errorf("market.open %s must be before market.close %s", m.Open, m.Close)
	}
	if _, err := ParseWallClock(m.PreMarketStart); err != nil {
		return fmt.Errorf("market.pre_market_start: %w", err)
	}
	if m.RiskFreeRate < 0 || m.RiskFreeRate > 1 {
		return fmt.Errorf("market.risk_free_rate must be within [0,1], got %v", m.RiskFreeRate)
	}
	return nil
}

func (g *GuardrailsConfig) validate() error {
	if g.MaxDailyLoss <= 0 {
		return fmt.Errorf("guardrails.max_daily_loss must be positive, got %v", g.MaxDailyLoss)
	}
	if g.MaxOpenPositions <= 0 {
		return fmt.Errorf("guardrails.max_open_positions must be positive, got %d", g.MaxOpenPositions)
	}
	if _, err := ParseWallClock(g.SquareOffTime); err != nil {
		return fmt.Errorf("guardrails.square_off_time: %w", err)
	}
	if g.MinIntervalSec <= 0 || g.MaxIntervalSec < g.MinIntervalSec {
		return fmt.Errorf("guardrails interval bounds invalid: min=%d max=%d", g.MinIntervalSec, g.MaxIntervalSec)
	}
	if g.MonitorIntervalSec < g.MinIntervalSec || g.MonitorIntervalSec > g.MaxIntervalSec {
		return fmt.Errorf("guardrails.monitoring_interval_seconds %d outside [%d,%d]",
			g.MonitorIntervalSec, g.MinIntervalSec, g.MaxIntervalSec)
	}
	if g.MaxIterations <= 0 {
		return fmt.Errorf("guardrails.max_iterations must be positive, got %d", g.MaxIterations)
	}
	return nil
}

// WallClock is a minutes-precision time of day.
type WallClock struct {
	Hour   int
	Minute int
}

// ParseWallClock parses an "HH:MM" string.
func ParseWallClock(s string) (WallClock, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return WallClock{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return WallClock{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return WallClock{}, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return WallClock{}, fmt.Errorf("time %q out of range", s)
	}
	return WallClock{Hour: h, Minute: m}, nil
}

func (w WallClock) Before(other WallClock) bool {
	if w.Hour != other.Hour {
		return w.Hour < other.Hour
	}
	return w.Minute < other.Minute
}

// String formats the wall clock back as zero-padded HH:MM.
func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}
