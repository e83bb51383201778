// Package feature maps a darwin segment record to a flat, fixed-order
// feature row for the predictor.
package feature

import (
	"time"

	"github.com/railsignal/raildelay/model"
	"github.com/railsignal/raildelay/timeutil"
)

// Order is the fixed field order feature vectors are emitted in.
var Order = []string{
	"departure_delay",
	"dwell_delay",
	"peak",
	"day_of_week",
	"day_of_month",
	"hour_of_day",
	"weekend",
	"season",
	"month",
	"holiday",
}

// Row is one feature vector. Numeric fields are float64/int; day_of_week
// and season stay as strings, same as the source's dataclass.
type Row struct {
	DepartureDelay float64
	DwellDelay     float64
	Peak           int
	DayOfWeek      string
	DayOfMonth     int
	HourOfDay      int
	Weekend        int
	Season         string
	Month          int
	Holiday        int
}

// Pair is one (name, value) entry, used when a component needs the
// row as an ordered map rather than a struct (debug printing, the
// pure-Go linear model adapter).
type Pair struct {
	Name  string
	Value any
}

// Ordered returns the row as (name, value) pairs in Order.
func (r Row) Ordered() []Pair {
	return []Pair{
		{"departure_delay", r.DepartureDelay},
		{"dwell_delay", r.DwellDelay},
		{"peak", r.Peak},
		{"day_of_week", r.DayOfWeek},
		{"day_of_month", r.DayOfMonth},
		{"hour_of_day", r.HourOfDay},
		{"weekend", r.Weekend},
		{"season", r.Season},
		{"month", r.Month},
		{"holiday", r.Holiday},
	}
}

type Builder struct {
	extractor TimeFeatureExtractor
	loc       *time.Location
}

func NewBuilder(calendar *Calendar, loc *time.Location) Builder {
	return Builder{extractor: NewTimeFeatureExtractor(calendar), loc: loc}
}

// Build maps a segment to a feature Row. Returns ok=false if ssd or
// planned_dep is absent, or departure_delay_min could not be computed
// — per spec.md §4.E, these segments emit nothing. dwell_delay
// defaults to 0 when not computable (spec.md §9 open question 1).
func (b Builder) Build(seg model.Segment) (Row, bool) {
	if seg.SSD == "" || !seg.PlannedDep.Present {
		return Row{}, false
	}
	if seg.DepartureDelayMin == nil {
		return Row{}, false
	}

	anchor, ok := timeutil.Combine(seg.SSD, seg.PlannedDep, nil, b.loc)
	if !ok {
		return Row{}, false
	}

	tf := b.extractor.Extract(anchor)

	dwell := 0.0
	if seg.DwellDelayMin != nil {
		dwell = *seg.DwellDelayMin
	}

	return Row{
		DepartureDelay: *seg.DepartureDelayMin,
		DwellDelay:     dwell,
		Peak:           tf.Peak,
		DayOfWeek:      tf.DayOfWeek,
		DayOfMonth:     tf.DayOfMonth,
		HourOfDay:      tf.HourOfDay,
		Weekend:        tf.Weekend,
		Season:         tf.Season,
		Month:          tf.Month,
		Holiday:        tf.Holiday,
	}, true
}
