package quantize_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pulsetrain/quantize"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// bruteMin scans every (k, c) pair with k up to ⌈target/c⌉+1 and returns the
// smallest |target − k·c|.
func bruteMin(target float64, grid []float64) float64 {
	best := math.Inf(1)
	for _, c := range grid {
		kmax := int(math.Ceil(target/c)) + 1
		for k := 1; k <= kmax; k++ {
			if r := math.Abs(target - float64(k)*c); r < best {
				best = r
			}
		}
	}

	return best
}

// TestSolve_MinimalResidual checks minimality against a brute-force scan on
// random grids and targets.
func TestSolve_MinimalResidual(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(40)
		grid := make([]float64, n)
		v := 0.5 + rng.Float64()*5
		for i := range grid {
			grid[i] = v
			v += 0.1 + rng.Float64()*3
		}
		target := 0.1 + rng.Float64()*2000

		fit, err := quantize.Solve(target, grid)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, fit.Repeat, 1)
		assert.Equal(t, grid[fit.Index], fit.Candidate)
		assert.InDelta(t, float64(fit.Repeat)*fit.Candidate, fit.Value, 1e-9)
		assert.InDelta(t, bruteMin(target, grid), fit.Residual, 1e-9*target, "trial %d", trial)
	}
}

// TestSolve_TiesPickLowestIndex verifies deterministic tie-breaking.
func TestSolve_TiesPickLowestIndex(t *testing.T) {
	fit, err := quantize.Solve(12, []float64{2, 3, 4, 6})
	require.NoError(t, err)
	assert.Equal(t, 0, fit.Index)
	assert.Equal(t, 6, fit.Repeat)
	assert.Equal(t, 12.0, fit.Value)
	assert.Zero(t, fit.Residual)

	// 10 vs {4,6}: 4·3=12 and 6·2=12 are both 2 away; index 0 wins.
	fit, err = quantize.Solve(10, []float64{4, 6})
	require.NoError(t, err)
	assert.Equal(t, 0, fit.Index)
	assert.Equal(t, 2.0, fit.Residual)
}

// TestSolve_RepeatAtLeastOne covers targets smaller than half a candidate.
func TestSolve_RepeatAtLeastOne(t *testing.T) {
	fit, err := quantize.Solve(1, []float64{5, 9})
	require.NoError(t, err)
	assert.Equal(t, 1, fit.Repeat)
	assert.Equal(t, 5.0, fit.Value)
	assert.Equal(t, 4.0, fit.Residual)
}

// TestSolve_LargeRatios exercises long low-rate trains built from short
// padded buffers (ratios of tens of thousands).
func TestSolve_LargeRatios(t *testing.T) {
	grid, err := quantize.StepGrid(40, 256)
	require.NoError(t, err)

	// 1 pps at 2.5 µs steps = 400000 steps; every divisor in the grid is exact.
	fit, err := quantize.Solve(400000, grid)
	require.NoError(t, err)
	assert.Zero(t, fit.Residual)
	assert.Equal(t, 400000.0, fit.Value)
	assert.Equal(t, 40, int(fit.Candidate), "first exact divisor in the grid")
	assert.Equal(t, 10000, fit.Repeat)

	fit, err = quantize.Solve(123456.7, grid)
	require.NoError(t, err)
	assert.InDelta(t, bruteMin(123456.7, grid), fit.Residual, 1e-6)
}

// TestSolve_Errors covers the grid and target contracts.
func TestSolve_Errors(t *testing.T) {
	_, err := quantize.Solve(10, nil)
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)

	_, err = quantize.Solve(10, []float64{3, 3})
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)

	_, err = quantize.Solve(10, []float64{4, 2})
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)

	_, err = quantize.Solve(10, []float64{0, 2})
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)

	_, err = quantize.Solve(10, []float64{1, math.NaN()})
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)

	_, err = quantize.Solve(0, []float64{1})
	assert.ErrorIs(t, err, stimerr.ErrValidation)

	_, err = quantize.Solve(math.Inf(1), []float64{1})
	assert.ErrorIs(t, err, stimerr.ErrValidation)
}

// TestStepGrid checks bounds and the empty-range error.
func TestStepGrid(t *testing.T) {
	grid, err := quantize.StepGrid(3, 6)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5, 6}, grid)

	_, err = quantize.StepGrid(7, 6)
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)
	_, err = quantize.StepGrid(0, 6)
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)
}

// TestRounding covers the step helpers.
func TestRounding(t *testing.T) {
	assert.Equal(t, 215, quantize.NearestSteps(43, 0.2))
	assert.Equal(t, 17, quantize.NearestSteps(43, 2.5))
	assert.InDelta(t, 42.5, quantize.Nearest(43, 2.5), 1e-12)
	assert.Equal(t, 39, quantize.CeilSteps(7.8, 0.2))
	assert.Equal(t, 1, quantize.CeilSteps(2.5, 2.5))
	assert.Equal(t, 0, quantize.CeilSteps(0, 2.5))
}
