package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestAnchorDateForMonth(t *testing.T) {
	bsAs := mustLoadLocation(t, "America/Argentina/Buenos_Aires")

	tests := []struct {
		name      string
		ref       time.Time
		anchorDay int
		loc       *time.Location
		wantYear  int
		wantMonth time.Month
		wantDay   int
	}{
		{
			name:      "plain mid month",
			ref:       time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC),
			anchorDay: 1,
			loc:       bsAs,
			wantYear:  2024,
			wantMonth: time.April,
			wantDay:   1,
		},
		{
			name:      "anchor day 31 clips to april 30",
			ref:       time.Date(2024, 4, 10, 0, 0, 0, 0, bsAs),
			anchorDay: 31,
			loc:       bsAs,
			wantYear:  2024,
			wantMonth: time.April,
			wantDay:   30,
		},
		{
			name:      "anchor day 31 clips to feb 29 in leap year",
			ref:       time.Date(2024, 2, 5, 0, 0, 0, 0, bsAs),
			anchorDay: 31,
			loc:       bsAs,
			wantYear:  2024,
			wantMonth: time.February,
			wantDay:   29,
		},
		{
			name:      "anchor day 30 clips to feb 28 outside leap year",
			ref:       time.Date(2023, 2, 5, 0, 0, 0, 0, bsAs),
			anchorDay: 30,
			loc:       bsAs,
			wantYear:  2023,
			wantMonth: time.February,
			wantDay:   28,
		},
		{
			name:      "anchor day 31 stays on long months",
			ref:       time.Date(2024, 1, 2, 0, 0, 0, 0, bsAs),
			anchorDay: 31,
			loc:       bsAs,
			wantYear:  2024,
			wantMonth: time.January,
			wantDay:   31,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnchorDateForMonth(tt.ref, tt.anchorDay, tt.loc)
			local := got.In(tt.loc)
			assert.Equal(t, tt.wantYear, local.Year())
			assert.Equal(t, tt.wantMonth, local.Month())
			assert.Equal(t, tt.wantDay, local.Day())
			assert.Equal(t, 0, local.Hour(), "anchor must be zone-local midnight")
			assert.Equal(t, 0, local.Minute())
		})
	}
}

func TestAnchorDateForMonthUsesZoneLocalMonth(t *testing.T) {
	bsAs := mustLoadLocation(t, "America/Argentina/Buenos_Aires")

	// 2024-05-01T01:00Z is still April 30 in Buenos Aires (UTC-3), so the
	// anchor month must be April, not May.
	ref := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	got := AnchorDateForMonth(ref, 1, bsAs).In(bsAs)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 1, got.Day())
}

func TestAnchorDateForMonthPanics(t *testing.T) {
	bsAs := mustLoadLocation(t, "America/Argentina/Buenos_Aires")
	ref := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	assert.Panics(t, func() { AnchorDateForMonth(ref, 1, nil) })
	assert.Panics(t, func() { AnchorDateForMonth(ref, 0, bsAs) })
	assert.Panics(t, func() { AnchorDateForMonth(ref, 32, bsAs) })
}

func TestNextAnchorDate(t *testing.T) {
	bsAs := mustLoadLocation(t, "America/Argentina/Buenos_Aires")

	// Jan 31 -> Feb 29 (leap) -> Mar 31: the clip never sticks
	jan := time.Date(2024, 1, 31, 0, 0, 0, 0, bsAs)
	feb := NextAnchorDate(jan, 31, bsAs)
	assert.Equal(t, "2024-02-29", DateKey(feb, bsAs))

	mar := NextAnchorDate(feb, 31, bsAs)
	assert.Equal(t, "2024-03-31", DateKey(mar, bsAs))

	// December wraps the year
	dec := time.Date(2024, 12, 15, 0, 0, 0, 0, bsAs)
	jan25 := NextAnchorDate(dec, 15, bsAs)
	assert.Equal(t, "2025-01-15", DateKey(jan25, bsAs))
}

func TestDateKeyRoundTrip(t *testing.T) {
	bsAs := mustLoadLocation(t, "America/Argentina/Buenos_Aires")

	parsed, err := ParseDateKey("2024-04-01", bsAs)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", DateKey(parsed, bsAs))

	local := parsed.In(bsAs)
	assert.Equal(t, 0, local.Hour())

	_, err = ParseDateKey("01-04-2024", bsAs)
	assert.Error(t, err)
}

func TestDateKeyIsZoneLocal(t *testing.T) {
	bsAs := mustLoadLocation(t, "America/Argentina/Buenos_Aires")

	// 2024-04-01T02:00Z is March 31 in Buenos Aires
	instant := time.Date(2024, 4, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-31", DateKey(instant, bsAs))
	assert.Equal(t, "2024-04-01", DateKey(instant, time.UTC))
}

func TestAddDaysLocalAcrossDST(t *testing.T) {
	santiago := mustLoadLocation(t, "America/Santiago")

	// Chile leaves DST on 2024-04-07: clocks go back one hour. Adding whole
	// local days must keep midnight at midnight regardless.
	start := time.Date(2024, 4, 5, 0, 0, 0, 0, santiago)
	got := AddDaysLocal(start, 7, santiago).In(santiago)

	assert.Equal(t, 12, got.Day())
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 0, got.Hour(), "local midnight must be preserved across the transition")

	// whereas naive 24h arithmetic drifts
	naive := start.Add(7 * 24 * time.Hour).In(santiago)
	assert.NotEqual(t, 0, naive.Hour())
}

func TestAddDaysLocalNegative(t *testing.T) {
	bsAs := mustLoadLocation(t, "America/Argentina/Buenos_Aires")

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, bsAs)
	got := AddDaysLocal(start, -1, bsAs)
	assert.Equal(t, "2024-02-29", DateKey(got, bsAs))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 31, DaysInMonth(2024, time.January))
	assert.Equal(t, 30, DaysInMonth(2024, time.April))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
}
