package darwin

import (
	"time"

	"github.com/railsignal/raildelay/model"
	"github.com/railsignal/raildelay/timeutil"
)

const (
	inProgressDepGrace = 5 * time.Minute
	inProgressArrGrace = 2 * time.Minute

	nearDepartureBefore = 30 * time.Minute
	nearDepartureAfter  = 180 * time.Minute
)

func plannedDepDT(seg model.Segment, loc *time.Location) (time.Time, bool) {
	if seg.SSD == "" || !seg.PlannedDep.Present {
		return time.Time{}, false
	}
	return timeutil.Combine(seg.SSD, seg.PlannedDep, nil, loc)
}

func plannedArrDT(seg model.Segment, base time.Time, loc *time.Location) (time.Time, bool) {
	if seg.SSD == "" || !seg.PlannedArrSecond.Present {
		return time.Time{}, false
	}
	return timeutil.Combine(seg.SSD, seg.PlannedArrSecond, &base, loc)
}

// FilterNearDeparture keeps segments whose planned departure falls
// within [now-before, now+after]. Used for debugging, per spec.md
// §4.D′.
func FilterNearDeparture(segments []model.Segment, now time.Time, loc *time.Location) []model.Segment {
	winStart := now.Add(-nearDepartureBefore)
	winEnd := now.Add(nearDepartureAfter)

	var out []model.Segment
	for _, seg := range segments {
		depDT, ok := plannedDepDT(seg, loc)
		if !ok {
			continue
		}
		if !depDT.Before(winStart) && !depDT.After(winEnd) {
			out = append(out, seg)
		}
	}
	return out
}

// FilterInProgress keeps segments that have started (or are about to,
// within a grace period) and have not yet arrived at B. Uses planned
// times only, by design — this is the mode the realtime orchestrator
// runs in. Requires seg.PlannedArrSecond to have been stashed by the
// caller (spec.md §4.J step 2).
func FilterInProgress(segments []model.Segment, now time.Time, loc *time.Location) []model.Segment {
	depLimit := now.Add(inProgressDepGrace)
	arrLimit := now.Add(-inProgressArrGrace)

	var out []model.Segment
	for _, seg := range segments {
		depDT, ok := plannedDepDT(seg, loc)
		if !ok {
			continue
		}

		arrDT, ok := plannedArrDT(seg, depDT, loc)
		if !ok {
			continue
		}

		if !depDT.After(depLimit) && !arrDT.Before(arrLimit) {
			out = append(out, seg)
		}
	}
	return out
}
