package train

import (
	"math"
	"sort"

	"github.com/katalvlaran/pulsetrain/stimerr"
)

// supportTolerance absorbs float noise when a pulse lands exactly on the
// first or last modulator sample.
const supportTolerance = 1e-12

// Modulator is an amplitude envelope sampled at pulse onsets.
// Times are seconds from onset (strictly increasing); Weights lie in [0,1].
type Modulator struct {
	Times   []float64 `json:"times"`
	Weights []float64 `json:"weights"`
}

// Validate checks the curve contract.
func (m Modulator) Validate() error {
	const method = "Modulator.Validate"
	if len(m.Times) == 0 {
		return stimerr.Wrap(method, stimerr.ErrValidation, "empty modulator")
	}
	if len(m.Times) != len(m.Weights) {
		return stimerr.Wrap(method, stimerr.ErrValidation, "%d times vs %d weights", len(m.Times), len(m.Weights))
	}
	for i := range m.Times {
		t, w := m.Times[i], m.Weights[i]
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return stimerr.Wrap(method, stimerr.ErrValidation, "time %d is %g", i, t)
		}
		if i > 0 && t <= m.Times[i-1] {
			return stimerr.Wrap(method, stimerr.ErrValidation, "time axis not strictly increasing at %d", i)
		}
		if math.IsNaN(w) || w < 0 || w > 1 {
			return stimerr.Wrap(method, stimerr.ErrValidation, "weight %d = %g outside [0,1]", i, w)
		}
	}

	return nil
}

// Sample returns the weight of the sample nearest to t. Times outside
// [first, last] give 0 (silence). Equidistant neighbours resolve to the later one.
//
// Complexity: O(log n).
func (m Modulator) Sample(t float64) float64 {
	n := len(m.Times)
	if n == 0 || t < m.Times[0]-supportTolerance || t > m.Times[n-1]+supportTolerance {
		return 0
	}
	i := sort.SearchFloat64s(m.Times, t) // first index with Times[i] ≥ t
	switch {
	case i == 0:
		return m.Weights[0]
	case i == n:
		return m.Weights[n-1]
	}
	if t-m.Times[i-1] < m.Times[i]-t {
		return m.Weights[i-1]
	}

	return m.Weights[i]
}
