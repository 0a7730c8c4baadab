package calendar

import (
	"fmt"
	"strings"
	"time"
)

// MonthFormat is the layout of a month key such as an invoice month.
const MonthFormat = "2006-01"

// Month is a calendar month, used for invoice months and statements.
type Month struct {
	y int
	m time.Month
}

// NewMonth returns the normalized month, so NewMonth(2024, 13) is 2025-01.
func NewMonth(year int, month time.Month) Month {
	d := NewDate(year, month, 1)
	return Month{d.y, d.m}
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-1", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return Month{t.Year(), t.Month()}, nil
}

// MustParseMonth is like ParseMonth but panics on error.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Year returns the year.
func (m Month) Year() int { return m.y }

// MonthOfYear returns the month of the year.
func (m Month) MonthOfYear() time.Month { return m.m }

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool { return m.y == 0 && m.m == 0 }

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.y, int(m.m))
}

// AddMonths returns m shifted by n months.
func (m Month) AddMonths(n int) Month { return NewMonth(m.y, m.m+time.Month(n)) }

// Next returns the following month.
func (m Month) Next() Month { return m.AddMonths(1) }

// Prev returns the preceding month.
func (m Month) Prev() Month { return m.AddMonths(-1) }

// First returns the first day of the month.
func (m Month) First() Date { return Date{m.y, m.m, 1} }

// Last returns the last day of the month.
func (m Month) Last() Date { return NewDate(m.y, m.m+1, 0) }

// Days returns the number of days in the month.
func (m Month) Days() int { return m.Last().d }

// Date returns the given day within m, clamped to the month's last day.
func (m Month) Date(day int) Date {
	if day < 1 {
		day = 1
	}
	if n := m.Days(); day > n {
		day = n
	}
	return Date{m.y, m.m, day}
}

// Contains reports whether d falls within m.
func (m Month) Contains(d Date) bool { return d.y == m.y && d.m == m.m }

// Compare returns -1, 0 or +1 depending on whether m is before, equal to or after x.
func (m Month) Compare(x Month) int {
	if m.y != x.y {
		return cmpInt(m.y, x.y)
	}
	return cmpInt(int(m.m), int(x.m))
}

// Before reports whether m is strictly before x.
func (m Month) Before(x Month) bool { return m.Compare(x) < 0 }

// After reports whether m is strictly after x.
func (m Month) After(x Month) bool { return m.Compare(x) > 0 }

// MonthsUntil returns how many months separate m from x.
func (m Month) MonthsUntil(x Month) int {
	return (x.y-m.y)*12 + int(x.m) - int(m.m)
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. An empty string is the zero Month.
func (m *Month) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = Month{}
		return nil
	}
	v, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
