package store

import (
	"database/sql"
	"fmt"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS predictions_all (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at_utc TEXT NOT NULL,

	rid TEXT NOT NULL,
	ssd TEXT,
	first TEXT NOT NULL,
	second TEXT NOT NULL,

	planned_dep TEXT,
	dep_time TEXT,
	dep_time_kind TEXT,
	has_actual_dep INTEGER NOT NULL,
	actual_dep_confirmed TEXT,

	departure_delay REAL,
	dwell_delay REAL,

	peak INTEGER,
	day_of_week TEXT,
	day_of_month INTEGER,
	hour_of_day INTEGER,
	weekend INTEGER,
	season TEXT,
	month INTEGER,
	holiday INTEGER,

	predicted_delay REAL,

	UNIQUE(rid, first, second, planned_dep)
);

CREATE TABLE IF NOT EXISTS predictions_actual (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at_utc TEXT NOT NULL,

	rid TEXT NOT NULL,
	ssd TEXT,
	first TEXT NOT NULL,
	second TEXT NOT NULL,

	planned_dep TEXT,
	dep_time TEXT,
	dep_time_kind TEXT,
	has_actual_dep INTEGER NOT NULL,
	actual_dep_confirmed TEXT,

	departure_delay REAL,
	dwell_delay REAL,

	peak INTEGER,
	day_of_week TEXT,
	day_of_month INTEGER,
	hour_of_day INTEGER,
	weekend INTEGER,
	season TEXT,
	month INTEGER,
	holiday INTEGER,

	predicted_delay REAL,

	UNIQUE(rid, first, second, planned_dep)
);

CREATE TABLE IF NOT EXISTS actual_arrivals_hsp (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at_utc TEXT NOT NULL,

	rid TEXT NOT NULL,
	ssd TEXT,
	first TEXT NOT NULL,
	second TEXT NOT NULL,
	planned_dep TEXT,

	is_main_journey INTEGER NOT NULL DEFAULT 0,

	predicted_delay REAL,

	planned_arr TEXT,
	actual_arr TEXT,
	actual_arr_delay REAL,

	toc_code TEXT,
	hsp_location_crs TEXT,
	hsp_tpls TEXT,

	UNIQUE(rid, first, second, planned_dep)
);
`

// additiveColumns lists ALTER TABLE ADD COLUMN migrations applied on
// top of the base CREATE TABLE statements, so a database created by
// an older build of this program picks up new columns in place.
var additiveColumns = []struct {
	table, column, def string
}{
	{"actual_arrivals_hsp", "is_main_journey", "INTEGER NOT NULL DEFAULT 0"},
	{"actual_arrivals_hsp", "predicted_delay", "REAL"},
	{"actual_arrivals_hsp", "planned_arr", "TEXT"},
	{"actual_arrivals_hsp", "actual_arr", "TEXT"},
	{"actual_arrivals_hsp", "actual_arr_delay", "REAL"},
	{"actual_arrivals_hsp", "toc_code", "TEXT"},
	{"actual_arrivals_hsp", "hsp_location_crs", "TEXT"},
	{"actual_arrivals_hsp", "hsp_tpls", "TEXT"},
}

// ensureSchema creates the tables used by this package if they don't
// already exist, then applies any additive column migrations. It is
// safe to call on every startup.
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("store: creating tables: %w", err)
	}

	for _, m := range additiveColumns {
		exists, err := columnExists(db, m.table, m.column)
		if err != nil {
			return fmt.Errorf("store: checking column %s.%s: %w", m.table, m.column, err)
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: adding column %s.%s: %w", m.table, m.column, err)
		}
	}

	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
