package quantize_test

import (
	"testing"

	"github.com/katalvlaran/pulsetrain/quantize"
)

// BenchmarkSolve_FullBuffer measures a rate fit over a 256-step buffer grid.
func BenchmarkSolve_FullBuffer(b *testing.B) {
	grid, err := quantize.StepGrid(20, 256)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = quantize.Solve(90497.3, grid); err != nil {
			b.Fatal(err)
		}
	}
}
