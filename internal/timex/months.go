package timex

import "time"

// AddMonths adds n calendar months to t. When the target month is shorter
// than t's day of month the result is clamped to the target month's last
// day (Jan 31 + 1 month = Feb 28/29), unlike time.AddDate which
// normalises into the following month. The wall clock and location of t
// are preserved.
func AddMonths(t time.Time, n int) time.Time {
	if n == 0 {
		return t
	}

	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	first := time.Date(year, month+time.Month(n), 1, hour, min, sec, t.Nanosecond(), t.Location())
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// DaysIn reports the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
