package predict

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/railsignal/raildelay/feature"
)

// pairKey identifies one segment pair's entry in the weights table
// and, together with a model name, one slot in the artifact cache.
type pairKey struct {
	first, second string
}

func pairKeyOf(first, second string) pairKey { return pairKey{first, second} }

func (k pairKey) String() string { return k.first + "_" + k.second }

type artifactKey struct {
	pair pairKey
	name string
}

// Ensemble holds the per-segment-pair weighted ensemble: a nested
// weights table {"A_B": {"modelName": weight, ...}} loaded once from
// disk, plus a lazily-populated cache of the artifacts those weights
// name. This is the Go shape of the source's WeightedEnsemblePredictor
// (_weights / _pipe_cache), adapted to the mutex-guarded
// load-once-per-key cache pattern used for predictor state.
type Ensemble struct {
	artifactDir string
	weights     map[pairKey]map[string]float64

	mu        sync.Mutex
	artifacts map[artifactKey]Model
}

// LoadEnsemble reads the weights file (JSON object keyed by
// "first_second", each value a map of model name to weight) and
// returns an Ensemble that will lazily load artifacts from
// artifactDir as segment pairs are predicted.
func LoadEnsemble(weightsPath, artifactDir string) (*Ensemble, error) {
	raw, err := os.ReadFile(weightsPath)
	if err != nil {
		return nil, errors.Wrap(err, "predict: read weights file")
	}

	var flat map[string]map[string]float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, errors.Wrap(err, "predict: decode weights file")
	}

	weights := make(map[pairKey]map[string]float64, len(flat))
	for key, perModel := range flat {
		first, second, ok := splitPairKey(key)
		if !ok {
			return nil, fmt.Errorf("predict: malformed weights key %q", key)
		}
		weights[pairKeyOf(first, second)] = perModel
	}

	return &Ensemble{
		artifactDir: artifactDir,
		weights:     weights,
		artifacts:   map[artifactKey]Model{},
	}, nil
}

func splitPairKey(key string) (first, second string, ok bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '_' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// modelFor returns the cached Model for (first, second, name), loading
// and caching it on first use. The cache never evicts: the set of
// segment pairs and model names is fixed for the life of the process.
func (e *Ensemble) modelFor(first, second, name string) (Model, error) {
	key := artifactKey{pair: pairKeyOf(first, second), name: name}

	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.artifacts[key]; ok {
		return m, nil
	}

	m, err := loadArtifact(artifactPath(e.artifactDir, first, second, name))
	if err != nil {
		return nil, err
	}
	e.artifacts[key] = m
	return m, nil
}

// Predict scores one feature row for a segment pair as the weighted
// average of every named sub-model's prediction: Σ w·predict / Σ w.
// It returns ok=false if no weights are registered for the pair, or
// the total weight is not positive, matching the source's "return
// None" behavior in those cases.
func (e *Ensemble) Predict(first, second string, row feature.Row) (float64, bool, error) {
	perModel, ok := e.weights[pairKeyOf(first, second)]
	if !ok || len(perModel) == 0 {
		return 0, false, nil
	}

	var weighted, totalWeight float64
	for name, w := range perModel {
		model, err := e.modelFor(first, second, name)
		if err != nil {
			return 0, false, errors.Wrapf(err, "predict: load model %s for %s_%s", name, first, second)
		}
		pred, err := model.Predict(row)
		if err != nil {
			return 0, false, errors.Wrapf(err, "predict: score model %s for %s_%s", name, first, second)
		}
		weighted += w * pred
		totalWeight += w
	}

	if totalWeight <= 0 {
		return 0, false, nil
	}
	return weighted / totalWeight, true, nil
}

// Close releases every loaded artifact (closing any subprocess
// models). Safe to call once at shutdown.
func (e *Ensemble) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for _, m := range e.artifacts {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
