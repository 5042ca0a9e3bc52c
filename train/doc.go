// Package train schedules an encoded pulse shape into a full stimulus.
//
// Build turns one shape, a quantized period and a pulse count into:
//
//   - a Sequence of device commands (the form a serialization sink consumes);
//   - an Electrodogram (per-electrode time/amplitude corners in seconds);
//   - the per-pulse periods, jitter offsets and modulator weights.
//
// Compression policy:
//
//	A plain train collapses to a single Periodic command with a repeat
//	count, which minimizes the data sent to a device. Amplitude modulation,
//	timing jitter and alternating polarity make pulses differ from each
//	other, so those trains expand to one Atomic command per pulse.
//
// Jitter:
//
//	The offsets form a fixed, evenly spaced grid over [−W/2, +W/2] with one
//	value per pulse. Each Build draws one permutation from the supplied
//	*rand.Rand, so the multiset of offsets never changes; only their
//	assignment to pulses does. Passing the same seeded source reproduces
//	the same assignment.
//
// Time axis:
//
//	Onsets are strictly increasing integers in steps; the electrodogram
//	converts them to seconds from stimulus onset.
package train
