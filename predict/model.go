// Package predict scores a feature row against per-segment-pair
// ensembles of lazily-loaded model artifacts.
package predict

import (
	"fmt"

	"github.com/railsignal/raildelay/feature"
)

// Model is one scoring artifact: a trained pipeline, a linear scorer,
// or a subprocess fronting either. A Model is not expected to be safe
// for concurrent use unless its implementation says otherwise.
type Model interface {
	Predict(row feature.Row) (float64, error)
	Close() error
}

// linearModel scores a row as an intercept plus a dot product over
// named coefficients. Numeric fields (departure_delay, dwell_delay,
// peak, day_of_month, hour_of_day, weekend, month, holiday) are
// weighted directly by field name; categorical fields (day_of_week,
// season) are weighted by a "field=value" coefficient key, present
// only when that particular category carries a non-zero weight.
//
// No ecosystem ML/linear-algebra library appears anywhere in the
// retrieved pack (see DESIGN.md); a dot product over ten terms does
// not warrant pulling one in, so this stays on the standard library.
type linearModel struct {
	intercept    float64
	coefficients map[string]float64
}

func (m linearModel) Predict(row feature.Row) (float64, error) {
	total := m.intercept
	for _, p := range row.Ordered() {
		switch v := p.Value.(type) {
		case int:
			total += m.coefficients[p.Name] * float64(v)
		case float64:
			total += m.coefficients[p.Name] * v
		case string:
			if w, ok := m.coefficients[p.Name+"="+v]; ok {
				total += w
			}
		default:
			return 0, fmt.Errorf("predict: unsupported feature value type for %s: %T", p.Name, v)
		}
	}
	return total, nil
}

func (m linearModel) Close() error { return nil }
