package types

import (
	"fmt"
	"time"
)

// DateKeyFormat is the zone-local YYYY-MM-DD rendering used both as the
// charge idempotency discriminator and as the FX rate lookup key.
const DateKeyFormat = "2006-01-02"

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AnchorDateForMonth resolves the billing anchor date for the month containing
// ref, as seen in loc. The anchor day is clipped to the actual length of the
// month, so anchor day 31 resolves to April 30 in April. The result is the
// absolute instant of that zone-local day's midnight.
//
// This is computed from the zone-local year/month/day rather than by adding
// fixed offsets, so it is stable across DST transitions.
// An invalid anchor day or nil location is a programmer error and panics.
func AnchorDateForMonth(ref time.Time, anchorDay int, loc *time.Location) time.Time {
	if loc == nil {
		panic("types: AnchorDateForMonth called with nil location")
	}
	if anchorDay < 1 || anchorDay > 31 {
		panic(fmt.Sprintf("types: anchor day %d out of range 1..31", anchorDay))
	}

	local := ref.In(loc)
	year, month, _ := local.Date()

	day := anchorDay
	if last := DaysInMonth(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// NextAnchorDate resolves the anchor date for the month following anchor,
// applying the same clipping rule as AnchorDateForMonth.
func NextAnchorDate(anchor time.Time, anchorDay int, loc *time.Location) time.Time {
	if loc == nil {
		panic("types: NextAnchorDate called with nil location")
	}
	local := anchor.In(loc)
	// the first of next month is always a valid date, clipping happens after
	firstOfNext := time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, loc)
	return AnchorDateForMonth(firstOfNext, anchorDay, loc)
}

// DateKey renders t as its zone-local YYYY-MM-DD key.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		panic("types: DateKey called with nil location")
	}
	return t.In(loc).Format(DateKeyFormat)
}

// ParseDateKey parses a YYYY-MM-DD key into that day's midnight in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		panic("types: ParseDateKey called with nil location")
	}
	t, err := time.ParseInLocation(DateKeyFormat, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// AddDaysLocal adds whole zone-local calendar days to t, preserving the
// zone-local clock time. Adding 24h multiples instead would drift by an hour
// whenever the interval crosses a DST transition.
func AddDaysLocal(t time.Time, days int, loc *time.Location) time.Time {
	if loc == nil {
		panic("types: AddDaysLocal called with nil location")
	}
	local := t.In(loc)
	year, month, day := local.Date()
	hour, min, sec := local.Clock()
	return time.Date(year, month, day+days, hour, min, sec, local.Nanosecond(), loc)
}
