package realtime

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcache "github.com/railsignal/raildelay/cache"
	"github.com/railsignal/raildelay/feature"
	"github.com/railsignal/raildelay/predict"
	"github.com/railsignal/raildelay/route"
	"github.com/railsignal/raildelay/stationref"
	"github.com/railsignal/raildelay/store"
)

var london = mustLoadLocation("Europe/London")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func testMaps(t *testing.T) route.Maps {
	t.Helper()
	csv := `NAME,TIPLOC,TIPLOC2,CRS
Southampton Central,SOTON,SOTON,SOU
Southampton Airport Parkway,SOTNPKW,SOTPKWY,SOA
`
	table, err := stationref.Load(strings.NewReader(csv))
	require.NoError(t, err)
	return route.BuildMaps(table)
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()

	writeJSON(t, filepath.Join(dir, "SOTON_SOTPKWY_m1.json"), map[string]any{
		"coefficients": map[string]float64{},
		"intercept":    1.0,
	})
	weightsPath := filepath.Join(dir, "weights.json")
	writeJSON(t, weightsPath, map[string]map[string]float64{
		"SOTON_SOTPKWY": {"m1": 1.0},
	})
	ensemble, err := predict.LoadEnsemble(weightsPath, dir)
	require.NoError(t, err)

	dbPath := filepath.Join(dir, "db.sqlite")
	writer, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(writer.Close)

	cfg := Config{Maps: testMaps(t), Location: london, Print: false}
	builder := feature.NewBuilder(feature.NewCalendar(), london)
	recent := rcache.New(10)

	return New(cfg, recent, writer, builder, ensemble, zerolog.Nop()), dbPath
}

func compressZlib(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const sampleMessage = `<?xml version="1.0" encoding="UTF-8"?>
<Pport xmlns="http://www.thalesgroup.com/rtti/PushPort/v16">
  <uR>
    <TS rid="X1" uid="U1" ssd="2025-04-10" updateOrigin="TD">
      <Location tpl="SOTON" ptd="09:00" etd="09:03" xmlns="http://www.thalesgroup.com/rtti/PushPort/Forecasts/v3"/>
      <Location tpl="SOTPKWY" pta="09:15" xmlns="http://www.thalesgroup.com/rtti/PushPort/Forecasts/v3"/>
    </TS>
  </uR>
  <schedule rid="X1" uid="U1" ssd="2025-04-10">
    <OR tpl="WEYMTH" xmlns="http://www.thalesgroup.com/rtti/PushPort/Schedules/v3"/>
    <DT tpl="WATRLMN" xmlns="http://www.thalesgroup.com/rtti/PushPort/Schedules/v3"/>
  </schedule>
</Pport>`

func TestHandleMessageEndToEnd(t *testing.T) {
	o, dbPath := newTestOrchestrator(t)
	body := compressZlib(t, sampleMessage)

	now := time.Date(2025, 4, 10, 9, 2, 0, 0, london)
	o.HandleMessage(body, now)

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	deadline := time.Now().Add(2 * time.Second)
	var count int
	for time.Now().Before(deadline) {
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM predictions_all`).Scan(&count))
		if count > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, count)
}

func TestHandleMessageBadFrameDoesNotPanic(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.HandleMessage([]byte("garbage"), time.Now())
}
