package feature

import "time"

// Calendar answers whether a date is an England & Wales bank holiday.
// No holiday-calendar library exists anywhere in the retrieved example
// pack (see DESIGN.md); this is a deliberately small, self-contained
// fixed/computed-date table rather than a hand-rolled ICU-style
// general calendar system.
type Calendar struct {
	byYear map[int]map[time.Time]bool
}

func NewCalendar() *Calendar {
	return &Calendar{byYear: map[int]map[time.Time]bool{}}
}

func (c *Calendar) IsHoliday(d time.Time) bool {
	d = dateOnly(d)
	year := d.Year()
	holidays, ok := c.byYear[year]
	if !ok {
		holidays = englandHolidays(year)
		c.byYear[year] = holidays
	}
	return holidays[d]
}

func dateOnly(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// englandHolidays computes the England & Wales bank holiday set for a
// given year: New Year's Day, Good Friday, Easter Monday, early May,
// spring, and summer bank holidays, Christmas Day and Boxing Day, with
// the standard weekend-substitution rule (a holiday falling on a
// weekend is observed on the next available weekday).
func englandHolidays(year int) map[time.Time]bool {
	easterSunday := computeEaster(year)
	goodFriday := easterSunday.AddDate(0, 0, -2)
	easterMonday := easterSunday.AddDate(0, 0, 1)

	holidays := map[time.Time]bool{}
	add := func(d time.Time) { holidays[dateOnly(d)] = true }

	addSubstituted := func(d time.Time) {
		add(substituteWeekend(d))
	}

	addSubstituted(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
	add(goodFriday)
	add(easterMonday)
	add(nthWeekdayOfMonth(year, time.May, time.Monday, 1))
	add(lastWeekdayOfMonth(year, time.May, time.Monday))
	add(lastWeekdayOfMonth(year, time.August, time.Monday))
	addSubstituted(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC))
	addSubstituted(time.Date(year, time.December, 26, 0, 0, 0, 0, time.UTC))

	return holidays
}

// substituteWeekend moves a Saturday holiday to the following Monday
// and a Sunday holiday to the following Monday, matching UK bank
// holiday convention. It does not attempt to resolve the rarer case
// of two consecutive substituted holidays colliding.
func substituteWeekend(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

func nthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	d = d.AddDate(0, 0, offset+(n-1)*7)
	return d
}

func lastWeekdayOfMonth(year int, month time.Month, weekday time.Weekday) time.Time {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfNext.AddDate(0, 0, -1)
	offset := (int(lastDay.Weekday()) - int(weekday) + 7) % 7
	return lastDay.AddDate(0, 0, -offset)
}

// computeEaster returns the date of Easter Sunday for the given year,
// using the anonymous Gregorian (Meeus/Jones/Butcher) algorithm.
func computeEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
