package hsp

import (
	"sort"
	"strings"

	"github.com/railsignal/raildelay/model"
	"github.com/railsignal/raildelay/route"
)

func cleanString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	default:
		return "", false
	}
}

// ExtractServiceLocations flattens a raw HSP service-details payload
// into one model.HSPLocation per location, Darwin-shaped so
// downstream matching code doesn't need to know which feed a location
// came from. is_main_journey is set to 1 when every CRS on the
// tracked route appears somewhere in this service's locations.
func ExtractServiceLocations(payload map[string]any, maps route.Maps) []model.HSPLocation {
	sad, ok := payload["serviceAttributesDetails"].(map[string]any)
	if !ok {
		return nil
	}

	rid, ok := cleanString(sad["rid"])
	if !ok {
		return nil
	}
	ssd, _ := cleanString(sad["date_of_service"])
	tocCode, _ := cleanString(sad["toc_code"])

	rawLocs, _ := sad["locations"].([]any)

	seenCRS := map[string]bool{}
	for _, rl := range rawLocs {
		loc, ok := rl.(map[string]any)
		if !ok {
			continue
		}
		if crs, ok := cleanString(loc["location"]); ok {
			seenCRS[crs] = true
		}
	}

	isMainJourney := 0
	if routeCRSIsSubset(maps, seenCRS) {
		isMainJourney = 1
	}

	sortedCRS := make([]string, 0, len(seenCRS))
	for crs := range seenCRS {
		sortedCRS = append(sortedCRS, crs)
	}
	sort.Strings(sortedCRS)
	hspTpls := strings.Join(sortedCRS, ",")

	out := make([]model.HSPLocation, 0, len(rawLocs))
	for _, rl := range rawLocs {
		loc, ok := rl.(map[string]any)
		if !ok {
			continue
		}
		crs, ok := cleanString(loc["location"])
		if !ok {
			continue
		}

		lateCancReason, _ := cleanString(loc["late_canc_reason"])
		tiploc2, known := maps.CRSToTIPLOC2[crs]

		out = append(out, model.HSPLocation{
			RID:            rid,
			SSD:            ssd,
			TOCCode:        tocCode,
			TPL:            crs,
			TIPLOC2:        tiploc2,
			TIPLOC2Known:   known,
			PTA:            hhmmClock(loc["gbtt_pta"]),
			PTD:            hhmmClock(loc["gbtt_ptd"]),
			ATA:            hhmmClock(loc["actual_ta"]),
			ATD:            hhmmClock(loc["actual_td"]),
			LateCancReason: lateCancReason,
			IsMainJourney:  isMainJourney,
			HSPTpls:        hspTpls,
		})
	}
	return out
}

func hhmmClock(v any) model.Clock {
	s, ok := cleanString(v)
	if !ok {
		return model.Clock{}
	}
	return model.NewClock(s)
}

// routeCRSIsSubset reports whether every CRS code on the tracked
// route appears in seen. An empty route is never a subset match.
func routeCRSIsSubset(maps route.Maps, seen map[string]bool) bool {
	if len(maps.CRSToTIPLOC2) == 0 {
		return false
	}
	for crs := range maps.CRSToTIPLOC2 {
		if !seen[crs] {
			return false
		}
	}
	return true
}
