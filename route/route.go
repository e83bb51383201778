// Package route holds the fixed ordered list of tracked station-pair
// segments for a single journey direction, and the maps derived from
// it once a station reference table is available. Reverse pairs are
// intentionally not included; direction filtering in darwin relies on
// this asymmetry.
package route

import "github.com/railsignal/raildelay/stationref"

// Pair is an ordered (A,B) station-pair segment, using TIPLOC2 codes.
type Pair struct {
	First  string
	Second string
}

// Pairs is the tracked route, in journey order. WEYMTH to WATRLMN.
var Pairs = []Pair{
	{"WEYMTH", "UPWEY"},
	{"UPWEY", "DRCHS"},
	{"DRCHS", "WOOL"},
	{"WOOL", "WARHAM"},
	{"WARHAM", "HMWTHY"},
	{"HMWTHY", "POOLE"},
	{"POOLE", "PSTONE"},
	{"PSTONE", "BRANKSM"},
	{"BRANKSM", "BOMO"},
	{"BOMO", "POKSDWN"},
	{"POKSDWN", "CHRISTC"},
	{"CHRISTC", "NMILTON"},
	{"NMILTON", "BKNHRST"},
	{"BKNHRST", "SOTON"},
	{"SOTON", "SOTPKWY"},
	{"SOTPKWY", "WNCHSTR"},
	{"WNCHSTR", "BSNGSTK"},
	{"BSNGSTK", "CLPHMJM"},
	{"CLPHMJM", "WATRLMN"},
}

// Maps bundles the sets/maps derived from Pairs plus a station
// reference table. Built once per process by BuildMaps; no hidden
// global I/O or on-import side effects.
type Maps struct {
	PairSet       map[Pair]bool
	Stations      []string // route stations in journey order
	Origin        string
	Destination   string
	CRSToTIPLOC2  map[string]string // route-canonical, first occurrence wins
	TIPLOC2ToCRS  map[string]string
}

// IsTrackedPair reports whether (a,b) is one of the tracked segments.
func (m Maps) IsTrackedPair(a, b string) bool {
	return m.PairSet[Pair{First: a, Second: b}]
}

// BuildMaps derives Maps from the fixed Pairs list and a loaded
// station reference table.
func BuildMaps(table stationref.Table) Maps {
	pairSet := make(map[Pair]bool, len(Pairs))
	for _, p := range Pairs {
		pairSet[p] = true
	}

	stations := make([]string, 0, len(Pairs)+1)
	stations = append(stations, Pairs[0].First)
	for _, p := range Pairs {
		stations = append(stations, p.Second)
	}

	tiploc2ToCRS := make(map[string]string, len(stations))
	crsToTIPLOC2 := make(map[string]string, len(stations))
	for _, t2 := range stations {
		crs, ok := table.CRSByTIPLOC2(t2)
		if !ok {
			continue
		}
		tiploc2ToCRS[t2] = crs
		if _, exists := crsToTIPLOC2[crs]; !exists {
			crsToTIPLOC2[crs] = t2
		}
	}

	return Maps{
		PairSet:      pairSet,
		Stations:     stations,
		Origin:       stations[0],
		Destination:  stations[len(stations)-1],
		CRSToTIPLOC2: crsToTIPLOC2,
		TIPLOC2ToCRS: tiploc2ToCRS,
	}
}
