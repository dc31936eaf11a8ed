package model

import (
	"errors"
	"fmt"
	"time"
)

// DefaultWindowClose is the end of a day's fetch window: market close plus one minute.
const DefaultWindowClose = 15*time.Hour + 31*time.Minute

// ErrStartAfterToday is returned when a range starts after the current date.
var ErrStartAfterToday = errors.New("start date is after today")

// TradingDay is one calendar day attempted by a backfill.
type TradingDay struct {
	Date        time.Time // 00:00 UTC
	WindowStart time.Time // Date@00:00 UTC
	WindowEnd   time.Time // Date + close offset, UTC
}

// NewTradingDay builds the fetch window for the calendar date of t. Only the
// year, month and day of t are used, so the result does not depend on t's location.
func NewTradingDay(t time.Time, closeOffset time.Duration) TradingDay {
	date := CalendarDate(t)
	return TradingDay{
		Date:        date,
		WindowStart: date,
		WindowEnd:   date.Add(closeOffset),
	}
}

// CalendarDate truncates t to midnight UTC of its own calendar date.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange spans Start through Today inclusive.
type DateRange struct {
	Start time.Time
	Today time.Time
}

// NewDateRange normalizes both bounds to calendar dates and checks Start <= Today.
func NewDateRange(start, today time.Time) (DateRange, error) {
	r := DateRange{Start: CalendarDate(start), Today: CalendarDate(today)}
	if r.Start.After(r.Today) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrStartAfterToday,
			r.Start.Format(time.DateOnly), r.Today.Format(time.DateOnly))
	}
	return r, nil
}

// NumDays returns (Today - Start).days + 1.
func (r DateRange) NumDays() int {
	return int(r.Today.Sub(r.Start).Hours()/24) + 1
}

// Days returns one TradingDay per calendar day in the range, oldest first.
// There is no holiday awareness.
func (r DateRange) Days(closeOffset time.Duration) []TradingDay {
	n := r.NumDays()
	days := make([]TradingDay, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, NewTradingDay(r.Start.AddDate(0, 0, i), closeOffset))
	}
	return days
}

// ParseWindowClose parses an "HH:MM" close bound into an offset from midnight.
func ParseWindowClose(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse window close %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
