// Package shiftcal computes the operational time windows of the plant: three
// fixed 8-hour shifts per day (07:00, 15:00, 23:00, the night shift spanning
// midnight) and the 24-hour accounting day anchored at 07:00 local time.
// Everything here is pure arithmetic over a reference instant.
package shiftcal

import (
	"fmt"
	"time"
)

const (
	DayShiftName       = "Day Shift"
	AfternoonShiftName = "Afternoon Shift"
	NightShiftName     = "Night Shift"
)

const (
	dayStartHour       = 7
	afternoonStartHour = 15
	nightStartHour     = 23
)

type ShiftWindow struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the half-open window [Start, End).
func (w ShiftWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type DayWindow struct {
	Start time.Time
	End   time.Time
}

func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type Calculator struct {
	loc *time.Location
}

func New(loc *time.Location) *Calculator {
	return &Calculator{loc: loc}
}

func NewForTimezone(name string) (*Calculator, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return &Calculator{loc: loc}, nil
}

func (c *Calculator) Location() *time.Location {
	return c.loc
}

// CurrentShift returns the shift window containing now.
func (c *Calculator) CurrentShift(now time.Time) ShiftWindow {
	now = now.In(c.loc)

	var name string
	var startHour int
	switch h := now.Hour(); {
	case h >= dayStartHour && h < afternoonStartHour:
		name, startHour = DayShiftName, dayStartHour
	case h >= afternoonStartHour && h < nightStartHour:
		name, startHour = AfternoonShiftName, afternoonStartHour
	default: // 23:00-06:59, night shift spans midnight
		name, startHour = NightShiftName, nightStartHour
	}

	start, end := c.shiftTimes(now, startHour)
	return ShiftWindow{Name: name, Start: start, End: end}
}

// shiftTimes derives the window for the shift starting at startHour, relative
// to the calendar date of ref. For the night shift the side of midnight is
// decided by ref's hour.
func (c *Calculator) shiftTimes(ref time.Time, startHour int) (time.Time, time.Time) {
	ref = ref.In(c.loc)
	y, m, d := ref.Date()

	if startHour == nightStartHour {
		if ref.Hour() >= nightStartHour {
			// today 23:00 to tomorrow 07:00
			return time.Date(y, m, d, nightStartHour, 0, 0, 0, c.loc),
				time.Date(y, m, d+1, dayStartHour, 0, 0, 0, c.loc)
		}
		// yesterday 23:00 to today 07:00
		return time.Date(y, m, d-1, nightStartHour, 0, 0, 0, c.loc),
			time.Date(y, m, d, dayStartHour, 0, 0, 0, c.loc)
	}

	start := time.Date(y, m, d, startHour, 0, 0, 0, c.loc)
	return start, start.Add(8 * time.Hour)
}

// CurrentDay returns the 24-hour accounting window containing now: before
// 07:00 that is [yesterday 07:00, today 07:00), otherwise
// [today 07:00, tomorrow 07:00).
func (c *Calculator) CurrentDay(now time.Time) DayWindow {
	now = now.In(c.loc)
	y, m, d := now.Date()

	if now.Hour() < dayStartHour {
		return DayWindow{
			Start: time.Date(y, m, d-1, dayStartHour, 0, 0, 0, c.loc),
			End:   time.Date(y, m, d, dayStartHour, 0, 0, 0, c.loc),
		}
	}
	return DayWindow{
		Start: time.Date(y, m, d, dayStartHour, 0, 0, 0, c.loc),
		End:   time.Date(y, m, d+1, dayStartHour, 0, 0, 0, c.loc),
	}
}

// PreviousShift returns the shift immediately before the one containing now.
// It steps the reference instant back across the shift boundary and
// re-derives, so the midnight-spanning night shift needs no special case.
func (c *Calculator) PreviousShift(now time.Time) ShiftWindow {
	current := c.CurrentShift(now)
	ref := current.Start.Add(-time.Hour)

	var name string
	var startHour int
	switch current.Name {
	case DayShiftName:
		name, startHour = NightShiftName, nightStartHour
	case AfternoonShiftName:
		name, startHour = DayShiftName, dayStartHour
	default:
		name, startHour = AfternoonShiftName, afternoonStartHour
	}

	start, end := c.shiftTimes(ref, startHour)
	return ShiftWindow{Name: name, Start: start, End: end}
}

// ShiftsForDay returns all three shift windows relative to now's date.
func (c *Calculator) ShiftsForDay(now time.Time) []ShiftWindow {
	now = now.In(c.loc)
	shifts := make([]ShiftWindow, 0, 3)
	for _, s := range []struct {
		name      string
		startHour int
	}{
		{DayShiftName, dayStartHour},
		{AfternoonShiftName, afternoonStartHour},
		{NightShiftName, nightStartHour},
	} {
		start, end := c.shiftTimes(now, s.startHour)
		shifts = append(shifts, ShiftWindow{Name: s.name, Start: start, End: end})
	}
	return shifts
}

// FormatRange renders a window for display, repeating the date only when the
// window crosses midnight.
func FormatRange(start, end time.Time) string {
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("15:04"))
}
