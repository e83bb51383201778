package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railsignal/raildelay/model"
)

var london = mustLoadLocation("Europe/London")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func TestParseClock(t *testing.T) {
	for _, tc := range []struct {
		name        string
		raw         string
		present     bool
		h, m, s     int
		ok          bool
	}{
		{"hh:mm", "09:43", true, 9, 43, 0, true},
		{"hh:mm:ss", "09:47:30", true, 9, 47, 30, true},
		{"hhmm", "0943", true, 9, 43, 0, true},
		{"absent", "", false, 0, 0, 0, false},
		{"garbage", "not-a-time", true, 0, 0, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := model.Clock{Raw: tc.raw, Present: tc.present}
			h, m, s, ok := ParseClock(c)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.h, h)
				assert.Equal(t, tc.m, m)
				assert.Equal(t, tc.s, s)
			}
		})
	}
}

func TestCombineNoBase(t *testing.T) {
	dt, ok := Combine("2025-04-10", model.NewClock("09:00"), nil, london)
	require.True(t, ok)
	assert.Equal(t, 2025, dt.Year())
	assert.Equal(t, time.April, dt.Month())
	assert.Equal(t, 10, dt.Day())
	assert.Equal(t, 9, dt.Hour())
}

func TestCombineMidnightRollover(t *testing.T) {
	base, ok := Combine("2025-04-10", model.NewClock("23:55"), nil, london)
	require.True(t, ok)

	dt, ok := Combine("2025-04-10", model.NewClock("00:04"), &base, london)
	require.True(t, ok)

	assert.Equal(t, 11, dt.Day())
	assert.Equal(t, 0, dt.Hour())
	assert.Equal(t, 4, dt.Minute())

	assert.Equal(t, 9.0, DiffMinutesWrap(base, dt))
}

func TestCombineNoRolloverWithinThreshold(t *testing.T) {
	base, ok := Combine("2025-04-10", model.NewClock("09:05"), nil, london)
	require.True(t, ok)

	// 08:00 is before base by less than 2h - no rollover expected.
	dt, ok := Combine("2025-04-10", model.NewClock("08:00"), &base, london)
	require.True(t, ok)
	assert.Equal(t, 10, dt.Day())
}

func TestCombineInvalidSSD(t *testing.T) {
	_, ok := Combine("not-a-date", model.NewClock("09:00"), nil, london)
	assert.False(t, ok)
}

func TestDiffMinutesWrap(t *testing.T) {
	planned := time.Date(2025, 4, 10, 9, 0, 0, 0, london)

	for _, tc := range []struct {
		name     string
		actual   time.Time
		expected float64
	}{
		{"small positive", time.Date(2025, 4, 10, 9, 3, 0, 0, london), 3},
		{"small negative", time.Date(2025, 4, 10, 8, 58, 0, 0, london), -2},
		{"rollover already applied", time.Date(2025, 4, 11, 0, 4, 0, 0, london), 904},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DiffMinutesWrap(planned, tc.actual))
		})
	}
}

func TestFormatMMSS(t *testing.T) {
	three := 3.0
	neg := -1.5
	assert.Equal(t, "NA", FormatMMSS(nil))
	assert.Equal(t, "03:00", FormatMMSS(&three))
	assert.Equal(t, "-01:30", FormatMMSS(&neg))
}
