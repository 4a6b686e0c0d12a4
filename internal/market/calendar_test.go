package market

import (
	"testing"
	"time"

	"odta/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := NewCalendar(config.MarketConfig{
		Timezone:       "Asia/Kolkata",
		Open:           "09:15",
		Close:          "15:30",
		PreMarketStart: "08:45",
		RiskFreeRate:   0.07,
	}, "15:00")
	require.NoError(t, err)
	return cal
}

func ist(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestCalendarClassify(t *testing.T) {
	cal := testCalendar(t)

	// 2025-09-06 is a Saturday.
	assert.Equal(t, SessionWeekend, cal.Classify(ist(t, 2025, 9, 6, 11, 0)))
	assert.Equal(t, SessionWeekend, cal.Classify(ist(t, 2025, 9, 7, 11, 0)))

	// 2025-09-08 is a Monday.
	assert.Equal(t, SessionBeforeOpen, cal.Classify(ist(t, 2025, 9, 8, 8, 50)))
	assert.Equal(t, SessionOpen, cal.Classify(ist(t, 2025, 9, 8, 9, 15)))
	assert.Equal(t, SessionOpen, cal.Classify(ist(t, 2025, 9, 8, 12, 0)))
	assert.Equal(t, SessionOpen, cal.Classify(ist(t, 2025, 9, 8, 15, 30)))
	assert.Equal(t, SessionAfterClose, cal.Classify(ist(t, 2025, 9, 8, 15, 31)))
}

func TestCalendarClassifyUsesVenueZone(t *testing.T) {
	cal := testCalendar(t)

	// 04:30 UTC on a Monday is 10:00 IST: open regardless of caller zone.
	utc := time.Date(2025, 9, 8, 4, 30, 0, 0, time.UTC)
	assert.Equal(t, SessionOpen, cal.Classify(utc))
}

func TestCalendarUntilOpen(t *testing.T) {
	cal := testCalendar(t)

	assert.Equal(t, 25*time.Minute, cal.UntilOpen(ist(t, 2025, 9, 8, 8, 50)))
	assert.Equal(t, time.Duration(0), cal.UntilOpen(ist(t, 2025, 9, 8, 10, 0)))
}

func TestCalendarPastSquareOff(t *testing.T) {
	cal := testCalendar(t)

	assert.False(t, cal.PastSquareOff(ist(t, 2025, 9, 8, 14, 59)))
	assert.True(t, cal.PastSquareOff(ist(t, 2025, 9, 8, 15, 0)))
	assert.True(t, cal.PastSquareOff(ist(t, 2025, 9, 8, 15, 5)))
}

func TestCalendarTradeDate(t *testing.T) {
	cal := testCalendar(t)
	assert.Equal(t, "2025-09-08", cal.TradeDate(ist(t, 2025, 9, 8, 10, 0)))
}

func TestNewCalendarRejectsBadConfig(t *testing.T) {
	_, err := NewCalendar(config.MarketConfig{
		Timezone: "Not/AZone",
		Open:     "09:15", Close: "15:30", PreMarketStart: "08:45",
	}, "15:00")
	assert.Error(t, err)

	_, err = NewCalendar(config.MarketConfig{
		Timezone: "Asia/Kolkata",
		Open:     "9am", Close: "15:30", PreMarketStart: "08:45",
	}, "15:00")
	assert.Error(t, err)
}
