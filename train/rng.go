// RNG utilities used by the jitter scheduler.
//
// Goals:
//   - Determinism: same seed ⇒ identical permutations across platforms.
//   - Encapsulation: a single RNG factory; no time-based sources hidden anywhere.
//   - The caller owns the *rand.Rand; Build consumes it and never stores it.
//
// Concurrency:
//   - math/rand.Rand is NOT goroutine-safe. Do not share a *rand.Rand across goroutines.

package train

import "math/rand"

// defaultRNGSeed is the fixed seed used when callers pass seed==0 or no RNG.
const defaultRNGSeed int64 = 1

// RandFromSeed returns a deterministic *rand.Rand.
// Policy: seed==0 ⇒ defaultRNGSeed; otherwise the provided seed verbatim.
//
// Complexity: O(1).
func RandFromSeed(seed int64) *rand.Rand {
	s := seed
	if s == 0 {
		s = defaultRNGSeed
	}

	return rand.New(rand.NewSource(s))
}

// shuffleIntsInPlace performs an in-place Fisher–Yates shuffle of a using rng.
// If rng==nil, the default deterministic stream is used.
//
// Complexity: O(n) time, O(1) extra space.
func shuffleIntsInPlace(a []int, rng *rand.Rand) {
	n := len(a)
	if n <= 1 {
		return
	}
	r := rng
	if r == nil {
		r = RandFromSeed(0)
	}

	var i, j int
	for i = n - 1; i > 0; i-- {
		j = r.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}

// permRange returns a permutation of 0..n-1 drawn from rng (n ≥ 0).
//
// Complexity: O(n) time, O(n) space.
func permRange(n int, rng *rand.Rand) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	shuffleIntsInPlace(p, rng)

	return p
}
