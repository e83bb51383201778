package feature

import "time"

// Season date ranges, anchored to a dummy leap year so month/day
// alone can be compared regardless of the actual year.
const dummyYear = 2000

type seasonRange struct {
	name  string
	start time.Time
	end   time.Time
}

var seasons = []seasonRange{
	{"Winter", date(dummyYear, time.January, 1), date(dummyYear, time.March, 20)},
	{"Spring", date(dummyYear, time.March, 21), date(dummyYear, time.June, 20)},
	{"Summer", date(dummyYear, time.June, 21), date(dummyYear, time.September, 22)},
	{"Autumn", date(dummyYear, time.September, 23), date(dummyYear, time.December, 20)},
	{"Winter", date(dummyYear, time.December, 21), date(dummyYear, time.December, 31)},
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func season(d time.Time) string {
	d2 := date(dummyYear, d.Month(), d.Day())
	for _, s := range seasons {
		if !d2.Before(s.start) && !d2.After(s.end) {
			return s.name
		}
	}
	return "Winter"
}

// TimeFeatures is the calendar-derived subset of a feature row.
type TimeFeatures struct {
	Peak       int
	DayOfWeek  string
	DayOfMonth int
	HourOfDay  int
	Weekend    int
	Season     string
	Month      int
	Holiday    int
}

type TimeFeatureExtractor struct {
	calendar *Calendar
}

func NewTimeFeatureExtractor(calendar *Calendar) TimeFeatureExtractor {
	return TimeFeatureExtractor{calendar: calendar}
}

func WeekendFlag(dayOfWeek time.Weekday) int {
	if dayOfWeek == time.Saturday || dayOfWeek == time.Sunday {
		return 1
	}
	return 0
}

// PeakFlag: weekday and (6<hour<10) or (16<=hour<=19).
func PeakFlag(hourOfDay, weekend int) int {
	if weekend == 1 {
		return 0
	}
	if hourOfDay > 6 && hourOfDay < 10 {
		return 1
	}
	if hourOfDay >= 16 && hourOfDay <= 19 {
		return 1
	}
	return 0
}

func (e TimeFeatureExtractor) Extract(dt time.Time) TimeFeatures {
	weekend := WeekendFlag(dt.Weekday())
	hour := dt.Hour()
	peak := PeakFlag(hour, weekend)

	holiday := 0
	if e.calendar != nil && e.calendar.IsHoliday(dt) {
		holiday = 1
	}

	return TimeFeatures{
		Peak:       peak,
		DayOfWeek:  dt.Weekday().String(),
		DayOfMonth: dt.Day(),
		HourOfDay:  hour,
		Weekend:    weekend,
		Season:     season(dt),
		Month:      int(dt.Month()),
		Holiday:    holiday,
	}
}
