package market

import (
	"fmt"
	"time"

	"odta/internal/config"
)

// Session classifies an instant relative to the venue's trading window.
type Session string

const (
	SessionWeekend    Session = "weekend"
	SessionBeforeOpen Session = "before_open"
	SessionOpen       Session = "open"
	SessionAfterClose Session = "after_close"
)

// Calendar answers "is the market open" questions for a single venue.
// All classification happens in the venue's local time zone; the caller's
// zone never matters. Calendar is immutable and safe for concurrent use.
type Calendar struct {
	loc            *time.Location
	open           config.WallClock
	close          config.WallClock
	preMarketStart config.WallClock
	squareOff      config.WallClock
}

// NewCalendar builds a Calendar from validated market/guardrail config.
// Invalid times or an unknown zone are startup errors.
func NewCalendar(mkt config.MarketConfig, squareOff string) (*Calendar, error) {
	loc, err := time.LoadLocation(mkt.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading venue timezone: %w", err)
	}
	open, err := config.ParseWallClock(mkt.Open)
	if err != nil {
		return nil, err
	}
	close, err := config.ParseWallClock(mkt.Close)
	if err != nil {
		return nil, err
	}
	pre, err := config.ParseWallClock(mkt.PreMarketStart)
	if err != nil {
		return nil, err
	}
	sq, err := config.ParseWallClock(squareOff)
	if err != nil {
		return nil, err
	}
	return &Calendar{loc: loc, open: open, close: close, preMarketStart: pre, squareOff: sq}, nil
}

// Now returns the current instant in the venue's zone.
func (c *Calendar) Now() time.Time { return time.Now().In(c.loc) }

// Classify buckets the instant into weekend / before-open / open / after-close.
func (c *Calendar) Classify(now time.Time) Session {
	local := now.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return SessionWeekend
	}
	openAt := c.at(local, c.open)
	closeAt := c.at(local, c.close)
	switch {
	case local.Before(openAt):
		return SessionBeforeOpen
	case local.After(closeAt):
		return SessionAfterClose
	default:
		return SessionOpen
	}
}

// UntilOpen returns the duration from now until today's market open.
// Zero if the market is already open or the day has no open left.
func (c *Calendar) UntilOpen(now time.Time) time.Duration {
	local := now.In(c.loc)
	openAt := c.at(local, c.open)
	if !local.Before(openAt) {
		return 0
	}
	return openAt.Sub(local)
}

// PastSquareOff reports whether the instant is at or past the square-off
// deadline, after which no new buy-side entries are allowed.
func (c *Calendar) PastSquareOff(now time.Time) bool {
	local := now.In(c.loc)
	return !local.Before(c.at(local, c.squareOff))
}

// TradeDate formats the instant's venue-local calendar date as YYYY-MM-DD.
func (c *Calendar) TradeDate(now time.Time) string {
	return now.In(c.loc).Format("2006-01-02")
}

// SquareOffTime returns the configured square-off deadline as HH:MM.
func (c *Calendar) SquareOffTime() string { return c.squareOff.String() }

func (c *Calendar) at(day time.Time, w config.WallClock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), w.Hour, w.Minute, 0, 0, c.loc)
}
