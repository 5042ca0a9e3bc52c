// Package quantize fits continuous stimulation parameters onto the discrete
// grids a hardware platform can actually produce.
//
// What it solves:
//
//	Given a target T (a duration, a period, a gap) and an ascending grid of
//	achievable unit sizes c₀ < c₁ < … < cₙ, Solve picks the pair (cᵢ, k)
//	with k ≥ 1 that minimizes |T − k·cᵢ|. Rate fitting on buffer-based
//	platforms is exactly this problem: one buffer of cᵢ steps repeated k
//	times must last as long as the requested period.
//
// Guarantees:
//   - Deterministic: ties resolve to the lowest grid index.
//   - Stable for T/c ratios from 1 to well beyond 10⁴ (float64 throughout,
//     no accumulated sums).
//   - Pure: no shared state, safe for concurrent use.
//
// Errors:
//   - stimerr.ErrConfiguration: empty, non-finite or non-increasing grid.
//   - stimerr.ErrValidation: non-positive or non-finite target.
//
// Complexity: O(n) time, O(1) extra space for a grid of n candidates.
package quantize
