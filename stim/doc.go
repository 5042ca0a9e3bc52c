// Package stim fits stimulation requests to a hardware platform and derives
// immutable snapshots of the result.
//
// Pipeline (one synchronous call, no partial results):
//
//	Request ──Validate──▶ Validated ──Fit──▶ Fitted ──Schedule──▶ Ready
//	                 ╲                  ╲                   ╲
//	                  ╰──────────────────┴───────────────────┴──▶ FitFailed
//
// Fit quantizes phase and gap to the platform step, chooses the slot
// length and repeat count that best approximate the requested period
// (rate first), then places the second pulse of a two-pulse stimulus
// inside the chosen slot (gap second) and finally rounds amplitudes on the
// grid of the active amplitude range. Schedule hands the result to the
// train package.
//
// Snapshots:
//
//	s, err := stim.Derive(platform.NIC, req, stim.WithSeed(7))
//	s2, err := s.With(stim.SetRate(900), stim.SetAmplitudes(120))
//
// With never mutates s: on failure it returns s itself with the error, so
// a caller always holds the last consistent derivation. Snapshots derived
// through With share the rng of the original Derive; jittered derivations
// advance it and are therefore not safe for concurrent With calls.
//
// Errors wrap the stimerr sentinels; Derive and With additionally return a
// *DeriveError naming the last stage reached.
package stim
