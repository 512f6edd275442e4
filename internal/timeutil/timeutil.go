package timeutil

import (
	"fmt"
	"time"
)

const ymdLayout = "20060102"

// ParseYMD parses a mainframe-style YYYYMMDD date in UTC.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ymdLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid YYYYMMDD date %q: %w", s, err)
	}
	return t, nil
}

func FormatYMD(t time.Time) string {
	return t.Format(ymdLayout)
}

// DayCount returns the number of days in the inclusive range [start, end].
func DayCount(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

// DaysInclusive materializes every day of the inclusive range [start, end].
func DaysInclusive(start, end time.Time) []time.Time {
	n := DayCount(start, end)
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}
