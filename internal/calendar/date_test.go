package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    Date
		wantErr bool
	}{
		{input: "2024-01-20", want: NewDate(2024, time.January, 20)},
		{input: "2024-1-5", want: NewDate(2024, time.January, 5)},
		{input: " 2023-12-31 ", want: NewDate(2023, time.December, 31)},
		{input: "2024-02-30", wantErr: true},
		{input: "20/01/2024", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate_AddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		start  string
		months int
		want   string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-01-15", 1, "2024-02-15"},
		{"2024-11-30", 3, "2025-02-28"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2024-02-29", 12, "2025-02-28"},
	}

	for _, tt := range tests {
		got := MustParseDate(tt.start).AddMonths(tt.months)
		assert.Equal(t, tt.want, got.String(), "%s + %d months", tt.start, tt.months)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := MustParseDate("2024-02-28")

	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2024-03-06", d.AddWeeks(1).String())
	assert.Equal(t, "2025-02-28", d.AddYears(1).String())
	assert.Equal(t, 2, d.DaysUntil(MustParseDate("2024-03-01")))
	assert.Equal(t, MustParseMonth("2024-02"), d.Month())
}

func TestDate_Compare(t *testing.T) {
	a := MustParseDate("2024-01-20")
	b := MustParseDate("2024-01-26")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(MustParseDate("2024-1-20")))
	assert.Equal(t, a, MinDate(a, b))
	assert.Equal(t, b, MaxDate(a, b))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Date  Date  `json:"date"`
		Month Month `json:"month"`
		Zero  Date  `json:"zero"`
	}

	in := wrapper{Date: MustParseDate("2024-03-05"), Month: MustParseMonth("2024-02")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-03-05","month":"2024-02","zero":""}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.True(t, out.Zero.IsZero())
}

func TestMonth(t *testing.T) {
	m := MustParseMonth("2024-12")

	assert.Equal(t, "2025-01", m.Next().String())
	assert.Equal(t, "2024-11", m.Prev().String())
	assert.Equal(t, "2024-12-01", m.First().String())
	assert.Equal(t, "2024-12-31", m.Last().String())
	assert.Equal(t, "2024-02-29", MustParseMonth("2024-02").Date(31).String())
	assert.True(t, m.Contains(MustParseDate("2024-12-15")))
	assert.False(t, m.Contains(MustParseDate("2025-12-15")))
	assert.Equal(t, 3, MustParseMonth("2024-11").MonthsUntil(MustParseMonth("2025-02")))
	assert.Equal(t, "2025-01", NewMonth(2024, 13).String())
}

func TestFixedClock(t *testing.T) {
	today := MustParseDate("2024-05-10")
	clock := Fixed(today)
	assert.Equal(t, today, clock())
}
