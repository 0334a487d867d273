package bizcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWeekendCalendar(t *testing.T) {
	cal, err := NewWeekendCalendar("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	assert.Equal(t, "America/Argentina/Buenos_Aires", cal.Region())

	_, err = NewWeekendCalendar("Not/A_Zone")
	assert.Error(t, err)
}

func TestAddBusinessDays(t *testing.T) {
	cal, err := NewWeekendCalendar("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	loc := cal.loc

	// 2024-03-01 is a Friday
	friday := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)

	got := cal.AddBusinessDays(friday, 1)
	assert.Equal(t, 4, got.Day(), "the Monday after")

	got = cal.AddBusinessDays(friday, 3)
	assert.Equal(t, 6, got.Day())

	got = cal.AddBusinessDays(friday, 7)
	assert.Equal(t, 12, got.Day())

	// a weekend start with n=0 rolls forward to Monday
	saturday := time.Date(2024, 3, 2, 0, 0, 0, 0, loc)
	got = cal.AddBusinessDays(saturday, 0)
	assert.Equal(t, 4, got.Day())

	// a weekday start with n=0 stays put
	got = cal.AddBusinessDays(friday, 0)
	assert.Equal(t, 1, got.Day())
}
