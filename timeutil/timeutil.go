// Package timeutil combines Darwin's dateless clock strings with a
// service start date into zoned timestamps, and computes wrap-safe
// minute deltas between them.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/railsignal/raildelay/model"
)

const rolloverThreshold = 2 * time.Hour

// ParseClock accepts "HH:MM", "HH:MM:SS" or "HHMM". Anything else
// returns (0, 0, 0, false) rather than an error — Darwin fields
// are routinely absent or malformed and the caller treats that as
// "no time source", not a failure.
func ParseClock(c model.Clock) (hour, min, sec int, ok bool) {
	if !c.Present {
		return 0, 0, 0, false
	}
	s := strings.TrimSpace(c.Raw)
	if s == "" {
		return 0, 0, 0, false
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		switch len(parts) {
		case 2:
			h, err1 := strconv.Atoi(parts[0])
			m, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil {
				return 0, 0, 0, false
			}
			return h, m, 0, true
		case 3:
			h, err1 := strconv.Atoi(parts[0])
			m, err2 := strconv.Atoi(parts[1])
			sec, err3 := strconv.Atoi(parts[2])
			if err1 != nil || err2 != nil || err3 != nil {
				return 0, 0, 0, false
			}
			return h, m, sec, true
		default:
			return 0, 0, 0, false
		}
	}

	// "HHMM" form, as used by HSP (gbtt_pta etc).
	if len(s) == 4 {
		h, err1 := strconv.Atoi(s[0:2])
		m, err2 := strconv.Atoi(s[2:4])
		if err1 != nil || err2 != nil {
			return 0, 0, 0, false
		}
		return h, m, 0, true
	}

	return 0, 0, 0, false
}

// Combine combines ssd ("YYYY-MM-DD") and a clock value into a zoned
// timestamp. If base is non-nil and the naive combination falls more
// than rolloverThreshold before base, the date is advanced by one day
// — Darwin's midnight-rollover heuristic.
func Combine(ssd string, c model.Clock, base *time.Time, loc *time.Location) (time.Time, bool) {
	h, m, s, ok := ParseClock(c)
	if !ok {
		return time.Time{}, false
	}

	d, err := time.ParseInLocation("2006-01-02", ssd, loc)
	if err != nil {
		return time.Time{}, false
	}

	dt := time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, loc)

	if base == nil {
		return dt, true
	}

	if dt.Before(*base) {
		gap := base.Sub(dt)
		if gap > rolloverThreshold {
			dt = dt.AddDate(0, 0, 1)
		}
	}

	return dt, true
}

// DiffMinutesWrap returns actual-planned in minutes, collapsing
// midnight-crossing artifacts: results above +1200 are reduced by
// 1440, results below -1200 are increased by 1440.
func DiffMinutesWrap(planned, actual time.Time) float64 {
	minutes := actual.Sub(planned).Minutes()
	if minutes > 1200 {
		minutes -= 1440
	}
	if minutes < -1200 {
		minutes += 1440
	}
	return minutes
}

// FormatMMSS renders minutes as signed MM:SS, e.g. "-01:30", or "NA"
// when minutes is nil.
func FormatMMSS(minutes *float64) string {
	if minutes == nil {
		return "NA"
	}
	totalSeconds := int(*minutes*60 + sign(*minutes)*0.5)
	neg := totalSeconds < 0
	if neg {
		totalSeconds = -totalSeconds
	}
	mm := totalSeconds / 60
	ss := totalSeconds % 60
	prefix := ""
	if neg {
		prefix = "-"
	}
	return fmt.Sprintf("%s%02d:%02d", prefix, mm, ss)
}

// FormatHHColonMM renders a Clock's raw value as "HH:MM", converting
// HSP's bare "HHMM" form. Returns "" when the clock is absent or
// unparseable.
func FormatHHColonMM(c model.Clock) string {
	h, m, _, ok := ParseClock(c)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
