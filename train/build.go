package train

import (
	"math"
	"math/rand"

	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

const methodBuild = "Build"

// microsecond converts µs to seconds.
const microsecond = 1e-6

// Build replicates cfg.Shape cfg.Count times and returns the device
// sequence together with the electrodogram.
//
// Variants:
//   - plain: one Periodic command with Repeat = Count;
//   - modulated: weights sampled at the nominal onsets i·period, one Atomic
//     command per pulse with re-quantized amplitudes;
//   - jittered: every period is base + a permuted offset drawn from Count
//     evenly spaced values over [−W/2, +W/2]; one Atomic command per pulse;
//   - alternating: odd pulses use the inverted shape; one Atomic command per pulse.
//
// Errors:
//   - stimerr.ErrConfiguration: inconsistent slot/shape/channel layout;
//   - stimerr.ErrValidation: malformed modulator or negative jitter window;
//   - stimerr.ErrAchievability: a jittered period drops below MinPeriodSteps.
//
// Complexity: O(Count·phases) time and memory. The electrodogram and the
// per-pulse slices hold one entry per pulse even when the sequence
// collapses to a single command, so callers bound Count.
func Build(cfg Config) (Train, error) {
	if err := checkConfig(cfg); err != nil {
		return Train{}, err
	}

	var (
		n     = cfg.Count
		base  = cfg.SlotSteps * cfg.Repeats
		stepS = cfg.StepUs * microsecond
		out   Train
	)

	// Periods, optionally jittered.
	out.Periods = make([]int, n)
	for i := range out.Periods {
		out.Periods[i] = base
	}
	if cfg.JitterUs > 0 {
		out.Offsets = jitterOffsets(n, cfg.JitterUs, cfg.StepUs, cfg.Rand)
		for i, off := range out.Offsets {
			out.Periods[i] = base + off
			if out.Periods[i] < cfg.MinPeriodSteps {
				return Train{}, stimerr.Wrap(methodBuild, stimerr.ErrAchievability,
					"jittered period %d of pulse %d below minimum %d steps", out.Periods[i], i, cfg.MinPeriodSteps)
			}
		}
	}

	// Modulator weights at nominal onsets.
	if cfg.Modulator != nil {
		out.Weights = make([]float64, n)
		for i := range out.Weights {
			out.Weights[i] = cfg.Modulator.Sample(float64(i) * float64(base) * stepS)
		}
	}

	// Onsets.
	starts := make([]int64, n)
	var total int64
	for i := 0; i < n; i++ {
		starts[i] = total
		total += int64(out.Periods[i])
	}

	compress := out.Offsets == nil && out.Weights == nil && !cfg.Alternate
	seq := Sequence{StepUs: cfg.StepUs, PulseCount: n, TotalSteps: total}
	gram := Electrodogram{
		Traces:     make([][]Point, cfg.ElectrodeCount),
		PulseTimes: make([]float64, n),
	}

	inverted := cfg.Shape.Inverted()
	for i := 0; i < n; i++ {
		s := cfg.Shape
		if cfg.Alternate && i%2 == 1 {
			s = inverted
		}
		amps := pulseAmplitudes(cfg, out.Weights, i)

		if compress {
			if i == 0 {
				seq.Commands = append(seq.Commands, Command{
					Kind:        Periodic,
					Shape:       s,
					Electrodes:  append([]int(nil), cfg.Electrodes...),
					Amplitudes:  amps,
					SlotSteps:   cfg.SlotSteps,
					SilentSlots: cfg.Repeats - 1,
					PeriodSteps: base,
					Repeat:      n,
				})
			}
		} else {
			seq.Commands = append(seq.Commands, Command{
				Kind:        Atomic,
				Pulse:       i,
				Shape:       s,
				Electrodes:  append([]int(nil), cfg.Electrodes...),
				Amplitudes:  amps,
				SlotSteps:   cfg.SlotSteps,
				SilentSlots: cfg.Repeats - 1,
				PeriodSteps: out.Periods[i],
				Repeat:      1,
				StartStep:   starts[i],
			})
		}

		gram.PulseTimes[i] = float64(starts[i]) * stepS
		appendPulse(&gram, s, cfg.Electrodes, amps, starts[i], stepS)
	}

	out.Sequence = seq
	out.Electrodogram = gram

	return out, nil
}

// checkConfig enforces the layout contract of Build.
func checkConfig(cfg Config) error {
	switch {
	case !(cfg.StepUs > 0) || math.IsInf(cfg.StepUs, 0):
		return stimerr.Wrap(methodBuild, stimerr.ErrConfiguration, "step %g µs", cfg.StepUs)
	case cfg.Count < 1:
		return stimerr.Wrap(methodBuild, stimerr.ErrConfiguration, "pulse count %d", cfg.Count)
	case cfg.Repeats < 1:
		return stimerr.Wrap(methodBuild, stimerr.ErrConfiguration, "repeats %d", cfg.Repeats)
	case cfg.SlotSteps < cfg.Shape.Len():
		return stimerr.Wrap(methodBuild, stimerr.ErrConfiguration, "slot %d shorter than shape %d", cfg.SlotSteps, cfg.Shape.Len())
	case len(cfg.Electrodes) != cfg.Shape.Channels || len(cfg.Amplitudes) != cfg.Shape.Channels:
		return stimerr.Wrap(methodBuild, stimerr.ErrConfiguration, "%d channels but %d electrodes and %d amplitudes",
			cfg.Shape.Channels, len(cfg.Electrodes), len(cfg.Amplitudes))
	case cfg.JitterUs < 0 || math.IsNaN(cfg.JitterUs):
		return stimerr.Wrap(methodBuild, stimerr.ErrValidation, "jitter window %g µs", cfg.JitterUs)
	}
	for _, e := range cfg.Electrodes {
		if e < 1 || e > cfg.ElectrodeCount {
			return stimerr.Wrap(methodBuild, stimerr.ErrConfiguration, "electrode %d outside 1..%d", e, cfg.ElectrodeCount)
		}
	}
	if cfg.Modulator != nil {
		if err := cfg.Modulator.Validate(); err != nil {
			return err
		}
	}

	return cfg.Shape.Check()
}

// jitterOffsets spreads n offsets evenly over [−W/2, +W/2], rounds them to
// steps and assigns them to pulses through one permutation drawn from rng.
func jitterOffsets(n int, windowUs, stepUs float64, rng *rand.Rand) []int {
	grid := make([]int, n)
	if n > 1 {
		half := windowUs / 2
		inc := windowUs / float64(n-1)
		for j := range grid {
			grid[j] = int(math.Round((-half + float64(j)*inc) / stepUs))
		}
	}
	perm := permRange(n, rng)
	out := make([]int, n)
	for i, p := range perm {
		out[i] = grid[p]
	}

	return out
}

// pulseAmplitudes returns the device amplitude of every channel for pulse i.
func pulseAmplitudes(cfg Config, weights []float64, i int) []float64 {
	amps := append([]float64(nil), cfg.Amplitudes...)
	if weights == nil {
		return amps
	}
	for ch := range amps {
		amps[ch] *= weights[i]
		if cfg.Quantize != nil {
			amps[ch] = cfg.Quantize(amps[ch])
		}
	}

	return amps
}

// appendPulse writes the corners of one pulse into the electrodogram.
func appendPulse(g *Electrodogram, s shape.Shape, electrodes []int, amps []float64, start int64, stepS float64) {
	for _, p := range s.Phases {
		a := p.Amplitude * amps[p.Channel]
		if a == 0 {
			continue
		}
		idx := electrodes[p.Channel] - 1
		t0 := float64(start+int64(p.Start)) * stepS
		t1 := float64(start+int64(p.End())) * stepS
		g.Traces[idx] = append(g.Traces[idx],
			Point{Time: t0, Amplitude: 0},
			Point{Time: t0, Amplitude: a},
			Point{Time: t1, Amplitude: a},
			Point{Time: t1, Amplitude: 0},
		)
	}
}
