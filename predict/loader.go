package predict

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// artifactFile is the on-disk shape of one named model artifact for a
// segment pair: <artifactDir>/<first>_<second>_<name>.json. Either the
// artifact is wrapped under a "pipeline" key, or the top-level object
// is itself the callable — mirroring the source's
// "dict with a pipeline key, or the bare object" artifact convention.
type artifactFile struct {
	Pipeline     json.RawMessage    `json:"pipeline"`
	Cmd          string             `json:"cmd"`
	Args         []string           `json:"args"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

func artifactPath(dir, first, second, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s.json", first, second, name))
}

// loadArtifact reads and constructs the Model described by one
// artifact file, unwrapping a "pipeline" envelope if present.
func loadArtifact(path string) (Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "predict: read artifact %s", path)
	}

	var top artifactFile
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, errors.Wrapf(err, "predict: decode artifact %s", path)
	}

	body := top
	if len(top.Pipeline) > 0 {
		if err := json.Unmarshal(top.Pipeline, &body); err != nil {
			return nil, errors.Wrapf(err, "predict: decode pipeline envelope in %s", path)
		}
	}

	switch {
	case body.Cmd != "":
		return startSubprocessModel(body.Cmd, body.Args)
	case body.Coefficients != nil:
		return linearModel{intercept: body.Intercept, coefficients: body.Coefficients}, nil
	default:
		return nil, fmt.Errorf("predict: artifact %s has neither a cmd nor coefficients", path)
	}
}
