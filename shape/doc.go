// Package shape encodes elementary stimulation pulses as ordered phases on a
// discrete time grid.
//
// A Shape is a list of constant-amplitude Phases measured in hardware steps.
// Amplitudes are normalized: ±1 for full-amplitude phases, ±1/r for the long
// phase of an asymmetric pulse and ±1/2 for the flanks of a triphasic pulse.
// Callers scale them by the device amplitude of the addressed channel.
//
// Topologies:
//
//	Biphasic            (+P) gap (−P)                      r=1
//	Asymmetric biphasic (+1/r, r·P) gap (−1, P)            r∈{2,4,8,16,32}
//	Triphasic           (−½, P) gap (+1, P) gap (−½, P)
//	PrecisionTriphasic  (−1, ⌊P/2⌋) gap (+1, P) gap (−1, ⌈P/2⌉)
//	Quadraphasic        biphasic(+) isg biphasic(−)
//	TwoPulse            biphasic on channel 0, biphasic on channel 1 at an offset
//
// Invariants guaranteed by Encode:
//   - every shape starts and ends at zero amplitude;
//   - net charge (Σ amplitude·steps) is zero per channel;
//   - polarity alternates strictly between consecutive phases of a group.
//
// Encode is pure and safe for concurrent use.
package shape
