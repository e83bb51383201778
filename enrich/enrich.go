// Package enrich runs the batch post-processing job that backfills
// actual arrival ground truth from HSP into actual_arrivals_hsp for
// rows already saved to predictions_actual.
package enrich

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/railsignal/raildelay/hsp"
	"github.com/railsignal/raildelay/model"
	"github.com/railsignal/raildelay/route"
	"github.com/railsignal/raildelay/timeutil"
)

// Counters summarizes one run's outcome.
type Counters struct {
	Written        int
	SkippedNoHSP   int
	SkippedNoMatch int
	SkippedNoTimes int
}

// candidateRow is one unprocessed predictions_actual row.
type candidateRow struct {
	RID            string
	SSD            string
	First          string
	Second         string
	PlannedDep     sql.NullString
	PredictedDelay sql.NullFloat64
}

// Options configures one enrichment run.
type Options struct {
	BeforeDate  string // "YYYY-MM-DD"; rows with ssd >= this are left alone
	LimitRows   int
	MaxRIDs     int
	SleepPerRID time.Duration
	DryRun      bool
	CommitEvery int
}

func (o Options) withDefaults() Options {
	if o.LimitRows <= 0 {
		o.LimitRows = 50000
	}
	if o.MaxRIDs <= 0 {
		o.MaxRIDs = 2000
	}
	if o.CommitEvery <= 0 {
		o.CommitEvery = 50
	}
	return o
}

// Worker drives one enrichment run against a database and the HSP API.
type Worker struct {
	db   *sql.DB
	hsp  *hsp.Client
	maps route.Maps
	loc  *time.Location
	log  zerolog.Logger
}

func NewWorker(db *sql.DB, hspClient *hsp.Client, maps route.Maps, loc *time.Location, log zerolog.Logger) *Worker {
	return &Worker{db: db, hsp: hspClient, maps: maps, loc: loc, log: log}
}

const candidatesSQL = `
SELECT p.rid, p.ssd, p.first, p.second, p.planned_dep, p.predicted_delay
FROM predictions_actual p
WHERE
	p.ssd IS NOT NULL
	AND p.ssd < ?
	AND NOT EXISTS (
		SELECT 1 FROM actual_arrivals_hsp a
		WHERE a.rid = p.rid
		  AND a.first = p.first
		  AND a.second = p.second
		  AND (
		        (a.planned_dep IS NULL AND p.planned_dep IS NULL)
		     OR (a.planned_dep = p.planned_dep)
		  )
	)
ORDER BY p.ssd ASC
LIMIT ?
`

func (w *Worker) fetchCandidates(beforeDate string, limitRows int) ([]candidateRow, error) {
	rows, err := w.db.Query(candidatesSQL, beforeDate, limitRows)
	if err != nil {
		return nil, fmt.Errorf("enrich: querying candidates: %w", err)
	}
	defer rows.Close()

	var out []candidateRow
	for rows.Next() {
		var r candidateRow
		if err := rows.Scan(&r.RID, &r.SSD, &r.First, &r.Second, &r.PlannedDep, &r.PredictedDelay); err != nil {
			return nil, fmt.Errorf("enrich: scanning candidate row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run fetches unprocessed predictions_actual rows, groups them by
// RID, calls HSP once per RID, and upserts one actual_arrivals_hsp row
// per matched prediction. Writes commit every CommitEvery RIDs (and
// once at the end) unless DryRun is set.
func (w *Worker) Run(ctx context.Context, opts Options) (Counters, error) {
	opts = opts.withDefaults()

	candidates, err := w.fetchCandidates(opts.BeforeDate, opts.LimitRows)
	if err != nil {
		return Counters{}, err
	}
	if len(candidates) == 0 {
		w.log.Info().Str("before_date", opts.BeforeDate).Msg("no unprocessed predictions_actual rows found")
		return Counters{}, nil
	}

	byRID := map[string][]candidateRow{}
	var rids []string
	for _, c := range candidates {
		if _, ok := byRID[c.RID]; !ok {
			rids = append(rids, c.RID)
		}
		byRID[c.RID] = append(byRID[c.RID], c)
	}
	if len(rids) > opts.MaxRIDs {
		rids = rids[:opts.MaxRIDs]
	}

	w.log.Info().Int("candidate_rows", len(candidates)).Int("distinct_rids", len(byRID)).Int("processing_rids", len(rids)).Msg("starting hsp enrichment")

	var counters Counters
	tx, err := w.beginIfNeeded(opts.DryRun)
	if err != nil {
		return Counters{}, err
	}

	for i, rid := range rids {
		select {
		case <-ctx.Done():
			return counters, ctx.Err()
		default:
		}

		if opts.SleepPerRID > 0 {
			time.Sleep(opts.SleepPerRID)
		}

		raw, ok := w.hsp.GetServiceDetails(ctx, rid)
		if !ok {
			counters.SkippedNoHSP += len(byRID[rid])
			continue
		}

		locs := hsp.ExtractServiceLocations(raw, w.maps)
		if len(locs) == 0 {
			counters.SkippedNoHSP += len(byRID[rid])
			continue
		}

		index := buildIndexByTIPLOC2(locs)

		for _, row := range byRID[rid] {
			rec, ok, reasonNoMatch := makeActualArrivalRecord(row, index, w.loc)
			if !ok {
				if reasonNoMatch {
					counters.SkippedNoMatch++
				} else {
					counters.SkippedNoTimes++
				}
				continue
			}

			if opts.DryRun {
				counters.Written++
				continue
			}

			if err := upsertActualArrival(tx, rec); err != nil {
				return counters, err
			}
			counters.Written++
		}

		if !opts.DryRun && (i+1)%opts.CommitEvery == 0 {
			if err := tx.Commit(); err != nil {
				return counters, fmt.Errorf("enrich: commit: %w", err)
			}
			w.log.Info().Int("progress", i+1).Int("total", len(rids)).Int("written", counters.Written).Msg("enrichment progress")
			tx, err = w.db.BeginTx(ctx, nil)
			if err != nil {
				return counters, fmt.Errorf("enrich: begin transaction: %w", err)
			}
		}
	}

	if !opts.DryRun {
		if err := tx.Commit(); err != nil {
			return counters, fmt.Errorf("enrich: final commit: %w", err)
		}
	} else if tx != nil {
		_ = tx.Rollback()
	}

	w.log.Info().
		Int("written", counters.Written).
		Int("skipped_no_hsp", counters.SkippedNoHSP).
		Int("skipped_no_match", counters.SkippedNoMatch).
		Int("skipped_no_times", counters.SkippedNoTimes).
		Msg("enrichment done")

	return counters, nil
}

func (w *Worker) beginIfNeeded(dryRun bool) (*sql.Tx, error) {
	if dryRun {
		return nil, nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("enrich: begin transaction: %w", err)
	}
	return tx, nil
}

// buildIndexByTIPLOC2 indexes HSP locations by TIPLOC2, last wins —
// matching the source's build_hsp_index_by_tiploc2.
func buildIndexByTIPLOC2(locs []model.HSPLocation) map[string]model.HSPLocation {
	out := make(map[string]model.HSPLocation, len(locs))
	for _, l := range locs {
		if !l.TIPLOC2Known {
			continue
		}
		out[l.TIPLOC2] = l
	}
	return out
}

// makeActualArrivalRecord builds one actual_arrivals_hsp row from a
// predictions_actual candidate and the HSP locations for its RID,
// matched on the segment's second (destination) station. ok is false
// if no HSP match exists for second (noMatch=true) or the match
// lacks a planned or an actual arrival time (noMatch=false).
func makeActualArrivalRecord(row candidateRow, index map[string]model.HSPLocation, loc *time.Location) (model.ActualArrivalRecord, bool, bool) {
	hspLoc, ok := index[row.Second]
	if !ok {
		return model.ActualArrivalRecord{}, false, true
	}

	if !hspLoc.PTA.Present || !hspLoc.ATA.Present {
		return model.ActualArrivalRecord{}, false, false
	}

	plannedDep := ""
	if row.PlannedDep.Valid {
		plannedDep = row.PlannedDep.String
	}

	var actualArrDelay float64
	if row.SSD != "" {
		base, baseOK := timeutil.Combine(row.SSD, model.NewClock(plannedDep), nil, loc)
		var basePtr *time.Time
		if baseOK {
			basePtr = &base
		}
		plannedDT, plannedOK := timeutil.Combine(row.SSD, hspLoc.PTA, basePtr, loc)
		if plannedOK {
			actualDT, actualOK := timeutil.Combine(row.SSD, hspLoc.ATA, &plannedDT, loc)
			if actualOK {
				actualArrDelay = timeutil.DiffMinutesWrap(plannedDT, actualDT)
			}
		}
	}

	var predictedDelay *float64
	if row.PredictedDelay.Valid {
		v := row.PredictedDelay.Float64
		predictedDelay = &v
	}

	return model.ActualArrivalRecord{
		CreatedAtUTC:   time.Now().UTC(),
		RID:            row.RID,
		SSD:            row.SSD,
		First:          row.First,
		Second:         row.Second,
		PlannedDep:     plannedDep,
		IsMainJourney:  hspLoc.IsMainJourney,
		PredictedDelay: predictedDelay,
		PlannedArr:     timeutil.FormatHHColonMM(hspLoc.PTA),
		ActualArr:      timeutil.FormatHHColonMM(hspLoc.ATA),
		ActualArrDelay: actualArrDelay,
		TOCCode:        hspLoc.TOCCode,
		HSPLocationCRS: hspLoc.TPL,
		HSPTpls:        hspLoc.HSPTpls,
	}, true, false
}

const upsertActualArrivalSQL = `
INSERT INTO actual_arrivals_hsp (
	created_at_utc, rid, ssd, first, second, planned_dep,
	is_main_journey, predicted_delay, planned_arr, actual_arr,
	actual_arr_delay, toc_code, hsp_location_crs, hsp_tpls
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(rid, first, second, planned_dep) DO UPDATE SET
	created_at_utc = excluded.created_at_utc,
	ssd = excluded.ssd,
	is_main_journey = excluded.is_main_journey,
	predicted_delay = excluded.predicted_delay,
	planned_arr = excluded.planned_arr,
	actual_arr = excluded.actual_arr,
	actual_arr_delay = excluded.actual_arr_delay,
	toc_code = excluded.toc_code,
	hsp_location_crs = excluded.hsp_location_crs,
	hsp_tpls = excluded.hsp_tpls
`

func upsertActualArrival(tx *sql.Tx, rec model.ActualArrivalRecord) error {
	_, err := tx.Exec(upsertActualArrivalSQL,
		rec.CreatedAtUTC.Format(time.RFC3339Nano),
		rec.RID, nullIfEmpty(rec.SSD), rec.First, rec.Second, nullIfEmpty(rec.PlannedDep),
		rec.IsMainJourney, rec.PredictedDelay, nullIfEmpty(rec.PlannedArr), nullIfEmpty(rec.ActualArr),
		rec.ActualArrDelay, nullIfEmpty(rec.TOCCode), nullIfEmpty(rec.HSPLocationCRS), nullIfEmpty(rec.HSPTpls),
	)
	if err != nil {
		return fmt.Errorf("enrich: upsert actual_arrivals_hsp: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
