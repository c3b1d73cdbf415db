package shiftcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(t *testing.T) *Calculator {
	calc, err := NewForTimezone("Pacific/Auckland")
	require.NoError(t, err)
	return calc
}

func TestCurrentShiftBoundaries(t *testing.T) {
	calc := newTestCalculator(t)
	loc := calc.Location()

	cases := []struct {
		now       time.Time
		wantName  string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			now:       time.Date(2024, 6, 10, 7, 0, 0, 0, loc),
			wantName:  DayShiftName,
			wantStart: time.Date(2024, 6, 10, 7, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 6, 10, 15, 0, 0, 0, loc),
		},
		{
			now:       time.Date(2024, 6, 10, 14, 59, 0, 0, loc),
			wantName:  DayShiftName,
			wantStart: time.Date(2024, 6, 10, 7, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 6, 10, 15, 0, 0, 0, loc),
		},
		{
			now:       time.Date(2024, 6, 10, 15, 0, 0, 0, loc),
			wantName:  AfternoonShiftName,
			wantStart: time.Date(2024, 6, 10, 15, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 6, 10, 23, 0, 0, 0, loc),
		},
		{
			// at 23:00 the night shift starts today and ends tomorrow 07:00
			now:       time.Date(2024, 6, 10, 23, 0, 0, 0, loc),
			wantName:  NightShiftName,
			wantStart: time.Date(2024, 6, 10, 23, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 6, 11, 7, 0, 0, 0, loc),
		},
		{
			// at 02:00 the night shift started yesterday 23:00
			now:       time.Date(2024, 6, 11, 2, 0, 0, 0, loc),
			wantName:  NightShiftName,
			wantStart: time.Date(2024, 6, 10, 23, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 6, 11, 7, 0, 0, 0, loc),
		},
		{
			// 06:59 is still the night shift of the previous day
			now:       time.Date(2024, 6, 11, 6, 59, 0, 0, loc),
			wantName:  NightShiftName,
			wantStart: time.Date(2024, 6, 10, 23, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 6, 11, 7, 0, 0, 0, loc),
		},
	}

	for _, tc := range cases {
		got := calc.CurrentShift(tc.now)
		assert.Equal(t, tc.wantName, got.Name, "at %v", tc.now)
		assert.True(t, got.Start.Equal(tc.wantStart), "at %v: start %v != %v", tc.now, got.Start, tc.wantStart)
		assert.True(t, got.End.Equal(tc.wantEnd), "at %v: end %v != %v", tc.now, got.End, tc.wantEnd)
	}
}

// Sweep a full 48 hours in 1-minute steps: every instant must fall in exactly
// one shift window, and every window must be exactly 8 hours long.
func TestShiftPartitionSweep(t *testing.T) {
	calc := newTestCalculator(t)
	loc := calc.Location()

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	for i := 0; i < 48*60; i++ {
		now := start.Add(time.Duration(i) * time.Minute)

		current := calc.CurrentShift(now)
		require.True(t, current.Contains(now), "shift %q %v-%v does not contain %v",
			current.Name, current.Start, current.End, now)
		require.Equal(t, 8*time.Hour, current.End.Sub(current.Start), "at %v", now)

		containing := 0
		for _, w := range calc.ShiftsForDay(now) {
			require.Equal(t, 8*time.Hour, w.End.Sub(w.Start), "shift %q at %v", w.Name, now)
			if w.Contains(now) {
				containing++
			}
		}
		require.Equal(t, 1, containing, "expected exactly one shift to contain %v", now)
	}
}

func TestCurrentDaySweep(t *testing.T) {
	calc := newTestCalculator(t)
	loc := calc.Location()

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	for i := 0; i < 48*60; i += 15 {
		now := start.Add(time.Duration(i) * time.Minute)

		day := calc.CurrentDay(now)
		require.True(t, day.Contains(now), "day window %v-%v does not contain %v", day.Start, day.End, now)
		require.Equal(t, 24*time.Hour, day.End.Sub(day.Start), "at %v", now)
		require.Equal(t, 7, day.Start.Hour(), "day window must be anchored at 07:00, at %v", now)
		require.Equal(t, 7, day.End.Hour(), "at %v", now)
	}
}

func TestCurrentDayBeforeAndAfterAnchor(t *testing.T) {
	calc := newTestCalculator(t)
	loc := calc.Location()

	before := calc.CurrentDay(time.Date(2024, 6, 11, 6, 30, 0, 0, loc))
	assert.True(t, before.Start.Equal(time.Date(2024, 6, 10, 7, 0, 0, 0, loc)))
	assert.True(t, before.End.Equal(time.Date(2024, 6, 11, 7, 0, 0, 0, loc)))

	after := calc.CurrentDay(time.Date(2024, 6, 11, 7, 0, 0, 0, loc))
	assert.True(t, after.Start.Equal(time.Date(2024, 6, 11, 7, 0, 0, 0, loc)))
	assert.True(t, after.End.Equal(time.Date(2024, 6, 12, 7, 0, 0, 0, loc)))
}

func TestPreviousShift(t *testing.T) {
	calc := newTestCalculator(t)
	loc := calc.Location()

	// during the day shift, previous is last night's shift
	prev := calc.PreviousShift(time.Date(2024, 6, 11, 9, 0, 0, 0, loc))
	assert.Equal(t, NightShiftName, prev.Name)
	assert.True(t, prev.Start.Equal(time.Date(2024, 6, 10, 23, 0, 0, 0, loc)))
	assert.True(t, prev.End.Equal(time.Date(2024, 6, 11, 7, 0, 0, 0, loc)))

	// during the afternoon shift, previous is the same-day day shift
	prev = calc.PreviousShift(time.Date(2024, 6, 11, 16, 0, 0, 0, loc))
	assert.Equal(t, DayShiftName, prev.Name)
	assert.True(t, prev.Start.Equal(time.Date(2024, 6, 11, 7, 0, 0, 0, loc)))

	// during the night shift after midnight, previous is yesterday's afternoon
	prev = calc.PreviousShift(time.Date(2024, 6, 11, 2, 0, 0, 0, loc))
	assert.Equal(t, AfternoonShiftName, prev.Name)
	assert.True(t, prev.Start.Equal(time.Date(2024, 6, 10, 15, 0, 0, 0, loc)))
	assert.True(t, prev.End.Equal(time.Date(2024, 6, 10, 23, 0, 0, 0, loc)))

	// during the night shift before midnight, previous is today's afternoon
	prev = calc.PreviousShift(time.Date(2024, 6, 10, 23, 30, 0, 0, loc))
	assert.Equal(t, AfternoonShiftName, prev.Name)
	assert.True(t, prev.Start.Equal(time.Date(2024, 6, 10, 15, 0, 0, 0, loc)))
}

func TestPreviousShiftIsContiguous(t *testing.T) {
	calc := newTestCalculator(t)
	loc := calc.Location()

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	for i := 0; i < 24*60; i += 7 {
		now := start.Add(time.Duration(i) * time.Minute)
		current := calc.CurrentShift(now)
		prev := calc.PreviousShift(now)
		require.True(t, prev.End.Equal(current.Start),
			"previous shift %v-%v must end where current %v-%v starts (now %v)",
			prev.Start, prev.End, current.Start, current.End, now)
	}
}

func TestFormatRange(t *testing.T) {
	loc := time.UTC

	sameDay := FormatRange(
		time.Date(2024, 6, 10, 7, 0, 0, 0, loc),
		time.Date(2024, 6, 10, 15, 0, 0, 0, loc),
	)
	assert.Equal(t, "2024-06-10 07:00 - 15:00", sameDay)

	crossDay := FormatRange(
		time.Date(2024, 6, 10, 23, 0, 0, 0, loc),
		time.Date(2024, 6, 11, 7, 0, 0, 0, loc),
	)
	assert.Equal(t, "2024-06-10 23:00 - 2024-06-11 07:00", crossDay)
}
