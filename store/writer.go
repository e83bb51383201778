// Package store holds the durable writer and schema manager backing
// the realtime prediction pipeline's SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/railsignal/raildelay/model"
)

const defaultQueueSize = 5000

// defaultJoinTimeout bounds how long Close waits for the writer
// goroutine to drain and exit, matching the source's join_timeout=10.0.
const defaultJoinTimeout = 10 * time.Second

// job is one queued write. A job with table == "" is the shutdown
// sentinel.
type job struct {
	table string
	rec   any
}

// Writer is a single background writer over one SQLite connection.
// Callers enqueue records from any goroutine; Enqueue* never blocks
// the caller — a full queue drops the write rather than stall the
// realtime pipeline, matching the source's "do not crash the realtime
// pipeline over a full queue" behavior.
type Writer struct {
	db     *sql.DB
	jobs   chan job
	done   chan struct{}
	closed chan struct{}
}

// OpenDB opens (creating if absent) the SQLite database at path,
// applies WAL + NORMAL synchronous + a busy timeout, and ensures the
// schema exists. It is exported so the enrichment worker, which drives
// its own synchronous connection rather than the queued Writer, can
// open the database the same way.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: applying %q: %w", p, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Open opens the database at path (see OpenDB) and starts the
// background writer goroutine.
func Open(path string) (*Writer, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		db:     db,
		jobs:   make(chan job, defaultQueueSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Writer) run() {
	defer close(w.closed)
	defer w.db.Close()

	for {
		j := <-w.jobs
		if j.table == "" {
			return
		}
		_ = w.write(j)
	}
}

func (w *Writer) write(j job) error {
	switch j.table {
	case "predictions_all", "predictions_actual":
		return w.insertPrediction(j.table, j.rec.(model.PredictionRecord))
	case "actual_arrivals_hsp":
		return w.upsertActualArrival(j.rec.(model.ActualArrivalRecord))
	default:
		return fmt.Errorf("store: unknown table %q", j.table)
	}
}

var predictionInsertSQL = `
INSERT OR IGNORE INTO %s (
	created_at_utc, rid, ssd, first, second, planned_dep,
	dep_time, dep_time_kind, has_actual_dep, actual_dep_confirmed,
	departure_delay, dwell_delay, peak, day_of_week, day_of_month,
	hour_of_day, weekend, season, month, holiday, predicted_delay
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (w *Writer) insertPrediction(table string, rec model.PredictionRecord) error {
	_, err := w.db.Exec(fmt.Sprintf(predictionInsertSQL, table),
		rec.CreatedAtUTC.UTC().Format(time.RFC3339Nano),
		rec.RID, nullIfEmpty(rec.SSD), rec.First, rec.Second, nullIfEmpty(rec.PlannedDep),
		nullIfEmpty(rec.DepTime), nullIfEmpty(string(rec.DepTimeKind)), boolToInt(rec.HasActualDep), nullIfEmpty(rec.ActualDepConfirmed),
		rec.DepartureDelay, rec.DwellDelay, rec.Peak, nullIfEmpty(rec.DayOfWeek), rec.DayOfMonth,
		rec.HourOfDay, rec.Weekend, nullIfEmpty(rec.Season), rec.Month, rec.Holiday, rec.PredictedDelay,
	)
	if err != nil {
		return fmt.Errorf("store: insert into %s: %w", table, err)
	}
	return nil
}

const actualArrivalUpsertSQL = `
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

func (w *Writer) upsertActualArrival(rec model.ActualArrivalRecord) error {
	_, err := w.db.Exec(actualArrivalUpsertSQL,
		rec.CreatedAtUTC.UTC().Format(time.RFC3339Nano),
		rec.RID, nullIfEmpty(rec.SSD), rec.First, rec.Second, nullIfEmpty(rec.PlannedDep),
		rec.IsMainJourney, rec.PredictedDelay, nullIfEmpty(rec.PlannedArr), nullIfEmpty(rec.ActualArr),
		rec.ActualArrDelay, nullIfEmpty(rec.TOCCode), nullIfEmpty(rec.HSPLocationCRS), nullIfEmpty(rec.HSPTpls),
	)
	if err != nil {
		return fmt.Errorf("store: upsert actual_arrivals_hsp: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EnqueuePredictionAll enqueues rec for predictions_all. Returns false
// if the write was dropped because the queue is full or the writer is
// closed.
func (w *Writer) EnqueuePredictionAll(rec model.PredictionRecord) bool {
	return w.enqueue("predictions_all", rec)
}

// EnqueuePredictionActual enqueues rec for predictions_actual.
func (w *Writer) EnqueuePredictionActual(rec model.PredictionRecord) bool {
	return w.enqueue("predictions_actual", rec)
}

// EnqueueActualArrival enqueues rec to be upserted into
// actual_arrivals_hsp.
func (w *Writer) EnqueueActualArrival(rec model.ActualArrivalRecord) bool {
	return w.enqueue("actual_arrivals_hsp", rec)
}

func (w *Writer) enqueue(table string, rec any) bool {
	select {
	case <-w.done:
		return false
	default:
	}

	select {
	case w.jobs <- job{table: table, rec: rec}:
		return true
	default:
		return false
	}
}

// Close stops the writer, waiting at most defaultJoinTimeout for it to
// drain and exit. See CloseTimeout.
func (w *Writer) Close() {
	w.CloseTimeout(defaultJoinTimeout)
}

// CloseTimeout stops the writer. Closing w.done first means no further
// writes are admitted, so the sentinel send is guaranteed to find room
// once the writer drains whatever was already queued — but a write
// wedged on a locked disk can still stall the writer goroutine
// indefinitely, so the join itself is bounded: after timeout,
// CloseTimeout returns even though the writer goroutine (and its DB
// connection) may still be running.
func (w *Writer) CloseTimeout(timeout time.Duration) {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	go func() { w.jobs <- job{} }()

	select {
	case <-w.closed:
	case <-time.After(timeout):
	}
}
