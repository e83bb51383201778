// Package stationref loads the station code reference table (a CSV of
// NAME, TIPLOC, TIPLOC2, CRS columns) into a read-only lookup. Per
// spec.md §1, this table itself is an external collaborator — this
// package only specifies the interface the rest of the module
// consumes: a loader plus by-code lookups.
package stationref

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

// Row is one line of the station reference CSV.
type Row struct {
	Name    string `csv:"NAME"`
	TIPLOC  string `csv:"TIPLOC"`
	TIPLOC2 string `csv:"TIPLOC2"`
	CRS     string `csv:"CRS"`
}

// Table is the parsed, normalized reference table: codes uppercased,
// names trimmed, indexed by every code column for O(1) lookup.
type Table struct {
	rows       []Row
	byTIPLOC2  map[string]Row
	byCRS      map[string]Row
	byTIPLOC   map[string]Row
}

func Load(r io.Reader) (Table, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return Table{}, fmt.Errorf("parsing station reference csv: %w", err)
	}

	t := Table{
		rows:      make([]Row, 0, len(rows)),
		byTIPLOC2: map[string]Row{},
		byCRS:     map[string]Row{},
		byTIPLOC:  map[string]Row{},
	}

	for _, row := range rows {
		row.Name = strings.TrimSpace(row.Name)
		row.TIPLOC = strings.ToUpper(strings.TrimSpace(row.TIPLOC))
		row.TIPLOC2 = strings.ToUpper(strings.TrimSpace(row.TIPLOC2))
		row.CRS = strings.ToUpper(strings.TrimSpace(row.CRS))

		t.rows = append(t.rows, row)
		if row.TIPLOC2 != "" {
			t.byTIPLOC2[row.TIPLOC2] = row
		}
		if row.CRS != "" {
			t.byCRS[row.CRS] = row
		}
		if row.TIPLOC != "" {
			t.byTIPLOC[row.TIPLOC] = row
		}
	}

	return t, nil
}

func (t Table) CRSByTIPLOC2(tiploc2 string) (string, bool) {
	row, ok := t.byTIPLOC2[strings.ToUpper(tiploc2)]
	if !ok || row.CRS == "" {
		return "", false
	}
	return row.CRS, true
}

func (t Table) NameByTIPLOC2(tiploc2 string) (string, bool) {
	row, ok := t.byTIPLOC2[strings.ToUpper(tiploc2)]
	if !ok || row.Name == "" {
		return "", false
	}
	return row.Name, true
}

func (t Table) TIPLOCByTIPLOC2(tiploc2 string) (string, bool) {
	row, ok := t.byTIPLOC2[strings.ToUpper(tiploc2)]
	if !ok || row.TIPLOC == "" {
		return "", false
	}
	return row.TIPLOC, true
}

func (t Table) TIPLOC2ByCRS(crs string) (string, bool) {
	row, ok := t.byCRS[strings.ToUpper(crs)]
	if !ok || row.TIPLOC2 == "" {
		return "", false
	}
	return row.TIPLOC2, true
}
