package quantize

import (
	"math"

	"github.com/katalvlaran/pulsetrain/stimerr"
)

// Method names used as error prefixes.
const (
	methodSolve    = "Solve"
	methodStepGrid = "StepGrid"
)

// tieTolerance is the relative tolerance under which two residuals count as
// equal; the earlier candidate then wins.
const tieTolerance = 1e-12

// Fit is the outcome of Solve.
type Fit struct {
	// Value is the achievable value Repeat·Candidate.
	Value float64
	// Candidate is the selected grid entry.
	Candidate float64
	// Index is the position of Candidate in the grid.
	Index int
	// Repeat is the integer multiplier k ≥ 1.
	Repeat int
	// Residual is |target − Value|.
	Residual float64
	// RatioResidual is |target/Candidate − Repeat|.
	RatioResidual float64
}

// Solve returns the grid candidate c and multiplier k ≥ 1 whose product is
// closest to target.
//
// Algorithm:
//  1. Validate target (finite, > 0) and grid (non-empty, finite, > 0, strictly increasing).
//  2. For every candidate c: ratio = target/c, k = max(1, round(ratio)),
//     residual = |target − k·c|.
//  3. Keep the first candidate whose residual is smaller than the best one
//     by more than tieTolerance·target.
//
// Complexity: O(n) time, O(1) space.
func Solve(target float64, candidates []float64) (Fit, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return Fit{}, stimerr.Wrap(methodSolve, stimerr.ErrValidation, "target must be finite and > 0, got %g", target)
	}
	if err := checkGrid(candidates); err != nil {
		return Fit{}, err
	}

	var (
		best  Fit
		found bool
		tol   = tieTolerance * target
	)
	for i, c := range candidates {
		ratio := target / c
		k := math.Round(ratio)
		if k < 1 {
			k = 1
		}
		value := k * c
		residual := math.Abs(target - value)
		if found && residual >= best.Residual-tol {
			continue
		}
		best = Fit{
			Value:         value,
			Candidate:     c,
			Index:         i,
			Repeat:        int(k),
			Residual:      residual,
			RatioResidual: math.Abs(ratio - k),
		}
		found = true
	}

	return best, nil
}

// checkGrid enforces the candidate grid contract.
func checkGrid(candidates []float64) error {
	if len(candidates) == 0 {
		return stimerr.Wrap(methodSolve, stimerr.ErrConfiguration, "empty candidate grid")
	}
	prev := math.Inf(-1)
	for i, c := range candidates {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return stimerr.Wrap(methodSolve, stimerr.ErrConfiguration, "candidate %d is %g", i, c)
		}
		if c <= prev {
			return stimerr.Wrap(methodSolve, stimerr.ErrConfiguration, "grid not strictly increasing at %d", i)
		}
		prev = c
	}

	return nil
}

// StepGrid returns the integer grid lo, lo+1, …, hi as float64 values,
// the candidate set of every buffer size between the minimum slot and the
// hardware capacity.
func StepGrid(lo, hi int) ([]float64, error) {
	if lo < 1 || hi < lo {
		return nil, stimerr.Wrap(methodStepGrid, stimerr.ErrConfiguration, "empty step range [%d,%d]", lo, hi)
	}
	grid := make([]float64, 0, hi-lo+1)
	for s := lo; s <= hi; s++ {
		grid = append(grid, float64(s))
	}

	return grid, nil
}

// NearestSteps rounds value/step to the nearest integer (half away from zero).
func NearestSteps(value, step float64) int {
	return int(math.Round(value / step))
}

// CeilSteps returns the smallest integer n with n·step ≥ value, tolerating
// float noise just above an exact multiple.
func CeilSteps(value, step float64) int {
	if value <= 0 {
		return 0
	}
	r := value / step

	return int(math.Ceil(r - 1e-9))
}

// Nearest rounds value to the nearest multiple of step.
func Nearest(value, step float64) float64 {
	return float64(NearestSteps(value, step)) * step
}
