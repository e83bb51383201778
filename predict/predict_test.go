package predict

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railsignal/raildelay/feature"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func TestLinearModelPredict(t *testing.T) {
	m := linearModel{
		intercept: 1.0,
		coefficients: map[string]float64{
			"departure_delay": 0.5,
			"peak":            2.0,
			"season=Summer":   1.5,
		},
	}
	row := feature.Row{DepartureDelay: 4.0, Peak: 1, Season: "Summer"}
	pred, err := m.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, 1.0+0.5*4.0+2.0*1.0+1.5, pred)
}

func TestLinearModelPredictUnknownCategoryContributesZero(t *testing.T) {
	m := linearModel{intercept: 0, coefficients: map[string]float64{}}
	row := feature.Row{Season: "Winter", DayOfWeek: "Monday"}
	pred, err := m.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred)
}

func TestSplitPairKey(t *testing.T) {
	first, second, ok := splitPairKey("SOTON_SOTPKWY")
	require.True(t, ok)
	assert.Equal(t, "SOTON", first)
	assert.Equal(t, "SOTPKWY", second)

	_, _, ok = splitPairKey("nounderscore")
	assert.False(t, ok)
}

func TestEnsemblePredictWeightedAverage(t *testing.T) {
	dir := t.TempDir()

	writeJSON(t, artifactPath(dir, "A", "B", "m1"), map[string]any{
		"coefficients": map[string]float64{"departure_delay": 1.0},
		"intercept":    0.0,
	})
	writeJSON(t, artifactPath(dir, "A", "B", "m2"), map[string]any{
		"coefficients": map[string]float64{"departure_delay": 3.0},
		"intercept":    0.0,
	})

	weightsPath := filepath.Join(dir, "weights.json")
	writeJSON(t, weightsPath, map[string]map[string]float64{
		"A_B": {"m1": 1.0, "m2": 1.0},
	})

	ens, err := LoadEnsemble(weightsPath, dir)
	require.NoError(t, err)

	row := feature.Row{DepartureDelay: 2.0}
	pred, ok, err := ens.Predict("A", "B", row)
	require.NoError(t, err)
	require.True(t, ok)
	// m1 predicts 2.0, m2 predicts 6.0, equal weights -> average 4.0
	assert.Equal(t, 4.0, pred)
}

func TestEnsemblePredictNoWeightsForPair(t *testing.T) {
	dir := t.TempDir()
	weightsPath := filepath.Join(dir, "weights.json")
	writeJSON(t, weightsPath, map[string]map[string]float64{})

	ens, err := LoadEnsemble(weightsPath, dir)
	require.NoError(t, err)

	_, ok, err := ens.Predict("A", "B", feature.Row{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsemblePredictCachesLoadedArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, artifactPath(dir, "A", "B", "m1"), map[string]any{
		"coefficients": map[string]float64{},
		"intercept":    5.0,
	})
	weightsPath := filepath.Join(dir, "weights.json")
	writeJSON(t, weightsPath, map[string]map[string]float64{"A_B": {"m1": 1.0}})

	ens, err := LoadEnsemble(weightsPath, dir)
	require.NoError(t, err)

	pred1, ok, err := ens.Predict("A", "B", feature.Row{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, pred1)

	require.NoError(t, os.Remove(artifactPath(dir, "A", "B", "m1")))

	pred2, ok, err := ens.Predict("A", "B", feature.Row{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, pred2)
}

func TestEnsemblePredictZeroTotalWeightIsNotPresent(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, artifactPath(dir, "A", "B", "m1"), map[string]any{
		"coefficients": map[string]float64{},
		"intercept":    9.0,
	})
	weightsPath := filepath.Join(dir, "weights.json")
	writeJSON(t, weightsPath, map[string]map[string]float64{"A_B": {"m1": 0.0}})

	ens, err := LoadEnsemble(weightsPath, dir)
	require.NoError(t, err)

	_, ok, err := ens.Predict("A", "B", feature.Row{})
	require.NoError(t, err)
	assert.False(t, ok)
}
