package bizcal

import (
	"time"
)

// BusinessCalendar is the business-day calendar of one specific region.
// Attempt scheduling consults it only when the subscription's timezone
// matches the calendar's region; other zones fall back to calendar days.
type BusinessCalendar interface {
	// Region is the IANA zone name of the region the calendar covers
	Region() string
	// AddBusinessDays moves t forward by n business days
	AddBusinessDays(t time.Time, n int) time.Time
}

// WeekendCalendar is the fallback BusinessCalendar that only skips weekends.
// Public-holiday feeds are external; deployments with one wrap or replace
// this implementation.
type WeekendCalendar struct {
	region string
	loc    *time.Location
}

// NewWeekendCalendar builds a weekend-skipping calendar for the given region
func NewWeekendCalendar(region string) (*WeekendCalendar, error) {
	loc, err := time.LoadLocation(region)
	if err != nil {
		return nil, err
	}
	return &WeekendCalendar{region: region, loc: loc}, nil
}

func (c *WeekendCalendar) Region() string {
	return c.region
}

// AddBusinessDays moves t forward n business days, skipping Saturdays and
// Sundays as seen in the calendar's region. n of 0 still rolls a weekend
// start forward to the next business day.
func (c *WeekendCalendar) AddBusinessDays(t time.Time, n int) time.Time {
	local := t.In(c.loc)
	for i := 0; i < n; i++ {
		local = local.AddDate(0, 0, 1)
		for isWeekend(local) {
			local = local.AddDate(0, 0, 1)
		}
	}
	if n == 0 {
		for isWeekend(local) {
			local = local.AddDate(0, 0, 1)
		}
	}
	return local
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
