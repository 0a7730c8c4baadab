package testutil

import "github.com/Veraticus/tally/internal/calendar"

// Clock is a settable calendar clock for tests.
type Clock struct {
	today calendar.Date
}

// NewClock starts a clock at the given YYYY-MM-DD day.
func NewClock(day string) *Clock {
	return &Clock{today: calendar.MustParseDate(day)}
}

// Now returns the current day. Pass c.Now wherever a calendar.Clock is needed.
func (c *Clock) Now() calendar.Date { return c.today }

// Set moves the clock to the given YYYY-MM-DD day.
func (c *Clock) Set(day string) { c.today = calendar.MustParseDate(day) }

// Advance moves the clock forward by days.
func (c *Clock) Advance(days int) { c.today = c.today.AddDays(days) }
