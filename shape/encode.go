package shape

import (
	"math"
	"sort"

	"github.com/katalvlaran/pulsetrain/stimerr"
)

const methodEncode = "Encode"

// Asymmetries lists the supported asymmetry ratios in ascending order.
var Asymmetries = []int{1, 2, 4, 8, 16, 32}

// ValidAsymmetry reports whether r is one of Asymmetries.
func ValidAsymmetry(r int) bool {
	for _, a := range Asymmetries {
		if a == r {
			return true
		}
	}

	return false
}

// Budget returns the phase-duration multiplier and the number of interphase
// gaps one pulse of topology t occupies. The achievability check uses
// phaseFactor·phase + gaps·gap as the minimal active time of a period.
func Budget(t Topology, asymmetry int) (phaseFactor float64, gaps int) {
	r := float64(normAsym(asymmetry))
	switch t {
	case Triphasic:
		return 3, 2
	case PrecisionTriphasic:
		return 2, 2
	case Quadraphasic:
		return 4, 2
	case TwoPulse:
		return 2 * (1 + r), 2
	default:
		return 1 + r, 1
	}
}

// BiphasicSteps returns the length of one (possibly asymmetric) biphasic pulse.
func BiphasicSteps(phaseSteps, gapSteps, asymmetry int) int {
	return normAsym(asymmetry)*phaseSteps + gapSteps + phaseSteps
}

// normAsym maps the zero value to the symmetric ratio.
func normAsym(r int) int {
	if r == 0 {
		return 1
	}

	return r
}

// builder appends phases while tracking a cursor in steps.
type builder struct {
	phases []Phase
	cursor int
}

func (b *builder) phase(steps int, amp float64, ch, group int) {
	b.phases = append(b.phases, Phase{Start: b.cursor, Steps: steps, Amplitude: amp, Channel: ch, Group: group})
	b.cursor += steps
}

func (b *builder) skip(steps int) { b.cursor += steps }

// biphasic appends (sign/r, r·P) gap (−sign, P).
func (b *builder) biphasic(p, g, r int, sign Sign, ch, group int) {
	s := float64(sign)
	b.phase(r*p, s/float64(r), ch, group)
	b.skip(g)
	b.phase(p, -s, ch, group)
}

// Encode lays out the phases of one elementary pulse described by spec.
//
// Validation (stimerr.ErrValidation):
//   - PhaseSteps ≥ 1 (≥ 2 for PrecisionTriphasic), GapSteps ≥ 0, InterPulse ≥ 0;
//   - Sign (and SecondSign when set) is ±1;
//   - Asymmetry ∈ Asymmetries, and > 1 only for Biphasic and TwoPulse;
//   - TwoPulse: SecondOffset ≥ length of the first pulse.
//
// Complexity: O(1); at most eight phases are produced.
func Encode(spec Spec) (Shape, error) {
	if err := checkSpec(spec); err != nil {
		return Shape{}, err
	}

	var (
		b    builder
		p    = spec.PhaseSteps
		g    = spec.GapSteps
		r    = normAsym(spec.Asymmetry)
		s    = spec.Sign
		fs   = float64(s)
		out  = Shape{Topology: spec.Topology, Channels: 1}
		half = p / 2
	)

	switch spec.Topology {
	case Biphasic:
		b.biphasic(p, g, r, s, 0, 0)

	case Triphasic:
		b.phase(p, -fs/2, 0, 0)
		b.skip(g)
		b.phase(p, fs, 0, 0)
		b.skip(g)
		b.phase(p, -fs/2, 0, 0)

	case PrecisionTriphasic:
		b.phase(half, -fs, 0, 0)
		b.skip(g)
		b.phase(p, fs, 0, 0)
		b.skip(g)
		b.phase(p-half, -fs, 0, 0)

	case Quadraphasic:
		b.biphasic(p, g, 1, s, 0, 0)
		b.skip(spec.InterPulse)
		b.biphasic(p, g, 1, -s, 0, 1)

	case TwoPulse:
		second := spec.SecondSign
		if second == 0 {
			second = s
		}
		b.biphasic(p, g, r, s, 0, 0)
		b.cursor = spec.SecondOffset
		b.biphasic(p, g, r, second, 1, 1)
		out.Channels = 2
	}

	out.Phases = b.phases
	out.Length = b.cursor

	return out, out.Check()
}

// checkSpec validates spec before any layout work.
func checkSpec(spec Spec) error {
	if spec.Topology < Biphasic || spec.Topology > TwoPulse {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "unknown topology %d", int(spec.Topology))
	}
	if spec.PhaseSteps < 1 {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "phase must be ≥ 1 step, got %d", spec.PhaseSteps)
	}
	if spec.Topology == PrecisionTriphasic && spec.PhaseSteps < 2 {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "precision triphasic needs ≥ 2 phase steps, got %d", spec.PhaseSteps)
	}
	if spec.GapSteps < 0 || spec.InterPulse < 0 {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "negative gap (%d, %d)", spec.GapSteps, spec.InterPulse)
	}
	if spec.Sign != Positive && spec.Sign != Negative {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "sign must be ±1, got %d", int(spec.Sign))
	}
	if spec.SecondSign != 0 && spec.SecondSign != Positive && spec.SecondSign != Negative {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "second sign must be ±1, got %d", int(spec.SecondSign))
	}
	r := normAsym(spec.Asymmetry)
	if !ValidAsymmetry(r) {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "asymmetry %d not in %v", r, Asymmetries)
	}
	if r > 1 && spec.Topology != Biphasic && spec.Topology != TwoPulse {
		return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "asymmetry %d unsupported for %s", r, spec.Topology)
	}
	if spec.Topology == TwoPulse {
		first := BiphasicSteps(spec.PhaseSteps, spec.GapSteps, r)
		if spec.SecondOffset < first {
			return stimerr.Wrap(methodEncode, stimerr.ErrValidation, "second pulse at %d overlaps first pulse of %d steps", spec.SecondOffset, first)
		}
	}

	return nil
}

// chargeTolerance bounds float noise in the per-channel charge sum.
const chargeTolerance = 1e-9

// Check verifies the shape invariants: positive phase durations, non-zero
// amplitudes, no overlap per channel, zero net charge per channel and strict
// polarity alternation inside each group.
func (s Shape) Check() error {
	const method = "Check"
	if len(s.Phases) == 0 {
		return stimerr.Wrap(method, stimerr.ErrValidation, "shape has no phases")
	}

	byGroup := make(map[int][]Phase)
	lastEnd := make(map[int]int)
	for _, p := range s.Phases {
		if p.Steps <= 0 || p.Amplitude == 0 || p.Start < 0 {
			return stimerr.Wrap(method, stimerr.ErrValidation, "degenerate phase %+v", p)
		}
		if end, ok := lastEnd[p.Channel]; ok && p.Start < end {
			return stimerr.Wrap(method, stimerr.ErrValidation, "overlapping phases on channel %d", p.Channel)
		}
		lastEnd[p.Channel] = p.End()
		byGroup[p.Group] = append(byGroup[p.Group], p)
	}

	for ch := 0; ch < s.Channels; ch++ {
		if q := s.Charge(ch); math.Abs(q) > chargeTolerance {
			return stimerr.Wrap(method, stimerr.ErrValidation, "channel %d net charge %g", ch, q)
		}
	}

	for group, phases := range byGroup {
		sort.Slice(phases, func(i, j int) bool { return phases[i].Start < phases[j].Start })
		for i := 1; i < len(phases); i++ {
			if (phases[i].Amplitude > 0) == (phases[i-1].Amplitude > 0) {
				return stimerr.Wrap(method, stimerr.ErrValidation, "group %d repeats polarity at step %d", group, phases[i].Start)
			}
		}
	}

	return nil
}
