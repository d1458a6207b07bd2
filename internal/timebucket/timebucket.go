// Package timebucket selects chart-friendly time granularities for a date
// range and formats bucket labels consistently between SQL grouping and
// synthesized placeholder rows.
package timebucket

import (
	"fmt"
	"time"
)

// Unit is a closed set of time-bucket granularities. Keeping the set closed
// lets the SQL layer interpolate format patterns without injection risk.
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
	Day
	Week
	Month
	Year
)

// String returns the unit name.
func (u Unit) String() string {
	switch u {
	case Second:
		return "second"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return "unknown"
}

// SubDay reports whether buckets of this unit are finer than a day. Sub-day
// buckets get shifted by the viewer's UTC offset so they align with local
// wall-clock boundaries.
func (u Unit) SubDay() bool {
	return u == Second || u == Minute || u == Hour
}

// SelectUnit picks a granularity for the given range so a line chart is
// neither too full nor too empty. It is a pure, total function.
func SelectUnit(dateFrom, dateTo time.Time) Unit {
	diff := dateTo.Sub(dateFrom)
	if diff < 0 {
		diff = -diff
	}

	dayDiff := int(diff.Hours()) / 24
	unit := Day

	// Up to two whole days still renders fine at hourly granularity.
	if dayDiff <= 2 {
		unit = Hour

		sameDay := dateFrom.Day() == dateTo.Day()
		hourDiff := int(diff.Hours()) % 24
		minuteDiff := int(diff.Minutes()) % 60
		if sameDay && hourDiff == 0 && minuteDiff > 0 {
			unit = Minute
		}
		secondDiff := int(diff.Seconds()) % 60
		if minuteDiff == 0 && secondDiff > 0 {
			unit = Minute
		}
	}
	if dayDiff > 31 {
		unit = Week
	}
	if dayDiff > 100 {
		unit = Month
	}
	if dayDiff > 1000 {
		unit = Year
	}

	return unit
}

// SQLFormat returns the Postgres to_char pattern that produces this unit's
// bucket label. Week and month use explicit display forms ("2018 week 05",
// "March 2018") instead of the raw numeric patterns so labels read well in
// both charts and tables.
func (u Unit) SQLFormat() string {
	switch u {
	case Second:
		return "YYYY-MM-DD HH24:MI:SS"
	case Minute:
		return "YYYY-MM-DD HH24:MI"
	case Hour:
		return "YYYY-MM-DD HH24:00"
	case Week:
		return `IYYY "week" IW`
	case Month:
		return "FMMonth YYYY"
	case Year:
		return "YYYY"
	default:
		return "YYYY-MM-DD"
	}
}

// FormatLabel renders a bucket label for t matching what SQLFormat produces
// for the same instant.
func (u Unit) FormatLabel(t time.Time) string {
	switch u {
	case Second:
		return t.Format("2006-01-02 15:04:05")
	case Minute:
		return t.Format("2006-01-02 15:04")
	case Hour:
		return t.Format("2006-01-02 15:00")
	case Week:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d week %02d", year, week)
	case Month:
		return t.Format("January 2006")
	case Year:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// ParseLabel parses a bucket label back into the instant at the start of the
// bucket. It is the inverse of FormatLabel, used to synthesize neighbor
// buckets around a single-row result.
func (u Unit) ParseLabel(label string) (time.Time, error) {
	switch u {
	case Second:
		return time.Parse("2006-01-02 15:04:05", label)
	case Minute:
		return time.Parse("2006-01-02 15:04", label)
	case Hour:
		return time.Parse("2006-01-02 15:00", label)
	case Week:
		var year, week int
		if _, err := fmt.Sscanf(label, "%d week %d", &year, &week); err != nil {
			return time.Time{}, fmt.Errorf("invalid week label %q: %w", label, err)
		}
		return isoWeekStart(year, week), nil
	case Month:
		return time.Parse("January 2006", label)
	case Year:
		return time.Parse("2006", label)
	default:
		return time.Parse("2006-01-02", label)
	}
}

// Shift moves t by n whole units.
func (u Unit) Shift(t time.Time, n int) time.Time {
	switch u {
	case Second:
		return t.Add(time.Duration(n) * time.Second)
	case Minute:
		return t.Add(time.Duration(n) * time.Minute)
	case Hour:
		return t.Add(time.Duration(n) * time.Hour)
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return t.AddDate(0, n, 0)
	case Year:
		return t.AddDate(n, 0, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// isoWeekStart returns the Monday starting the given ISO week.
func isoWeekStart(year, week int) time.Time {
	// Jan 4 is always inside ISO week 1.
	t := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, -1)
	}
	return t.AddDate(0, 0, (week-1)*7)
}
