package darwin

import (
	"time"

	"github.com/railsignal/raildelay/model"
	"github.com/railsignal/raildelay/route"
	"github.com/railsignal/raildelay/timeutil"
)

const reverseVoteRejectThreshold = -10.0 // minutes; a single delta this negative is an immediate reject

// ExtractSegments produces zero or more segment records from a
// decoded frame's forecasts, direction-filtered against the tracked
// route. loc is explicit throughout — never a package-global timezone,
// per spec.md §4.A.
func ExtractSegments(forecasts []model.ForecastLocation, schedules []model.ScheduleEndpoint, maps route.Maps, loc *time.Location, dropWrongDirection bool) []model.Segment {
	if len(forecasts) == 0 {
		return nil
	}

	rid := forecasts[0].RID
	ssd := forecasts[0].SSD

	byTPL := buildTPLIndex(forecasts)

	if dropWrongDirection {
		match := scheduleDirectionMatch(schedules, maps)
		if match == directionWrong {
			return nil
		}
		if match == directionUnknown && isReverseByVote(byTPL) {
			return nil
		}
	}

	var out []model.Segment
	for _, pair := range route.Pairs {
		locA, okA := byTPL[pair.First]
		locB, okB := byTPL[pair.Second]
		if !okA || !okB {
			continue
		}

		out = append(out, buildSegment(rid, ssd, pair, locA, locB, pair.First == maps.Origin, loc))
	}

	return out
}

func buildTPLIndex(forecasts []model.ForecastLocation) map[string]model.ForecastLocation {
	byTPL := make(map[string]model.ForecastLocation, len(forecasts))
	for _, f := range forecasts {
		if f.TPL != "" {
			byTPL[f.TPL] = f
		}
	}
	return byTPL
}

type directionResult int

const (
	directionUnknown directionResult = iota
	directionRight
	directionWrong
)

func scheduleDirectionMatch(schedules []model.ScheduleEndpoint, maps route.Maps) directionResult {
	var origin, dest string
	for _, s := range schedules {
		switch s.Type {
		case model.EndpointOrigin:
			origin = s.TPL
		case model.EndpointDestination:
			dest = s.TPL
		}
	}
	if origin == "" || dest == "" {
		return directionUnknown
	}
	if origin == maps.Origin && dest == maps.Destination {
		return directionRight
	}
	return directionWrong
}

// isReverseByVote is the fallback direction heuristic when schedule
// endpoints are absent or partial: vote using time-of-day only.
func isReverseByVote(byTPL map[string]model.ForecastLocation) bool {
	forwardVotes, reverseVotes := 0, 0

	for _, pair := range route.Pairs {
		a, okA := byTPL[pair.First]
		b, okB := byTPL[pair.Second]
		if !okA || !okB {
			continue
		}

		depClock, ok := firstPresent(a.PTD, a.WTD, a.DepET, a.DepAT)
		if !ok {
			continue
		}
		arrClock, ok := firstPresent(b.PTA, b.WTA, b.ArrET, b.ArrWET, b.ArrAT)
		if !ok {
			continue
		}

		depMin, ok1 := minutesOfDay(depClock)
		arrMin, ok2 := minutesOfDay(arrClock)
		if !ok1 || !ok2 {
			continue
		}

		delta := arrMin - depMin
		if delta < -720 {
			delta += 1440
		}

		if delta < 0 {
			reverseVotes++
			if delta <= reverseVoteRejectThreshold {
				return true
			}
		} else {
			forwardVotes++
		}
	}

	if forwardVotes+reverseVotes >= 2 {
		return reverseVotes > forwardVotes
	}
	return false
}

func minutesOfDay(c model.Clock) (float64, bool) {
	h, m, s, ok := timeutil.ParseClock(c)
	if !ok {
		return 0, false
	}
	return float64(h*60+m) + float64(s)/60.0, true
}

func firstPresent(clocks ...model.Clock) (model.Clock, bool) {
	for _, c := range clocks {
		if c.Present && c.Raw != "" {
			return c, true
		}
	}
	return model.Clock{}, false
}

func buildSegment(rid, ssd string, pair route.Pair, locA, locB model.ForecastLocation, aIsOrigin bool, loc *time.Location) model.Segment {
	plannedDep, _ := firstPresent(locA.PTD, locA.WTD)

	actualDepConfirmed, hasActualDep := firstPresent(locA.ATD, locA.DepAT)
	depEstimate, hasEstimate := firstPresent(locA.ETD, locA.DepET)
	depWorking, hasWorking := firstPresent(locA.WTD)

	var depTimeForPrediction model.Clock
	var depKind model.DepTimeKind

	switch {
	case hasActualDep:
		depTimeForPrediction, depKind = actualDepConfirmed, model.DepKindActual
	case hasEstimate:
		depTimeForPrediction, depKind = depEstimate, model.DepKindEstimate
	case hasWorking:
		depTimeForPrediction, depKind = depWorking, model.DepKindEstimate
	default:
		if plannedDep.Present {
			depTimeForPrediction, depKind = plannedDep, model.DepKindEstimate
		} else {
			depKind = model.DepKindMissing
		}
	}

	var plannedDepDT *time.Time
	if ssd != "" && plannedDep.Present {
		if dt, ok := timeutil.Combine(ssd, plannedDep, nil, loc); ok {
			plannedDepDT = &dt
		}
	}

	var departureDelayMin *float64
	if plannedDepDT != nil && ssd != "" && depTimeForPrediction.Present {
		if depDT, ok := timeutil.Combine(ssd, depTimeForPrediction, plannedDepDT, loc); ok {
			v := timeutil.DiffMinutesWrap(*plannedDepDT, depDT)
			departureDelayMin = &v
		}
	}

	plannedArrA, _ := firstPresent(locA.PTA, locA.WTA)
	actualArrConfirmed, hasActualArr := firstPresent(locA.ATA, locA.ArrAT)
	arrEstimate, hasArrEstimate := firstPresent(locA.ArrET, locA.ArrWET)

	var arrTimeForDwell model.Clock
	switch {
	case hasActualArr:
		arrTimeForDwell = actualArrConfirmed
	case hasArrEstimate:
		arrTimeForDwell = arrEstimate
	}

	var arrivalDelayMin *float64
	if plannedDepDT != nil && ssd != "" && plannedArrA.Present {
		if plannedArrDT, ok := timeutil.Combine(ssd, plannedArrA, plannedDepDT, loc); ok {
			if arrTimeForDwell.Present {
				if arrDT, ok := timeutil.Combine(ssd, arrTimeForDwell, plannedDepDT, loc); ok {
					v := timeutil.DiffMinutesWrap(plannedArrDT, arrDT)
					arrivalDelayMin = &v
				}
			}
		}
	}

	var dwellDelayMin *float64
	switch {
	case aIsOrigin:
		dwellDelayMin = departureDelayMin
	case departureDelayMin != nil && arrivalDelayMin != nil:
		v := *departureDelayMin - *arrivalDelayMin
		dwellDelayMin = &v
	}

	locAcopy, locBcopy := locA, locB

	return model.Segment{
		RID:                  rid,
		SSD:                  ssd,
		First:                pair.First,
		Second:               pair.Second,
		PlannedDep:           plannedDep,
		PlannedArr:           plannedArrA,
		DepTimeForPrediction: depTimeForPrediction,
		DepTimeKind:          depKind,
		HasActualDep:         hasActualDep,
		ActualDepConfirmed:   actualDepConfirmed,
		DepartureDelayMin:    departureDelayMin,
		ArrivalDelayMin:      arrivalDelayMin,
		DwellDelayMin:        dwellDelayMin,
		LocFirst:             &locAcopy,
		LocSecond:            &locBcopy,
	}
}
