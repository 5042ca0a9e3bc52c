package stim

import (
	"math"
	"slices"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/quantize"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// Layout is the step-level layout of one hardware slot.
type Layout struct {
	PhaseSteps      int // quantized (short) phase
	GapSteps        int // quantized interphase gap
	InterPulseSteps int // quadraphasic inter-stimulus gap
	ShapeSteps      int // length of the encoded shape
	MinGapSteps     int // ⌈platform min gap / step⌉
	MinSlotSteps    int // ShapeSteps (with the smallest second offset) + MinGapSteps
	MinPeriodSteps  int // shortest legal pulse-to-pulse interval; floor for jittered periods
	SlotSteps       int // chosen slot (buffer) length
	PaddingSteps    int // zero steps closing the slot after the shape
	SecondOffset    int // two-pulse: start step of the second pulse
}

// FitResult holds the achievable parameters of a request on one platform.
// It is recomputed in full by every Fit call.
type FitResult struct {
	Platform      string
	Topology      shape.Topology
	RatePPS       float64   // achievable rate
	PeriodSteps   int       // SlotSteps · Repeats
	PhaseUs       float64   // achievable phase duration
	GapUs         float64   // achievable interphase gap
	InterPulseUs  float64   // achievable quadraphasic inter-stimulus gap
	TwoPulseGapUs float64   // achievable silent interval between the two pulses
	Amplitudes    []float64 // achievable amplitude per channel
	Levels        []int     // amplitude level index per channel
	RangeIndex    int       // active platform amplitude range
	RangeMax      float64   // ceiling of the active range
	AmplitudeStep float64   // resolution inside the active range
	Repeats       int       // slot executions per period
	PulseCount    int
	Layout        Layout
	Shape         shape.Shape

	// Residuals of the two timing fits, in pulses/s and µs.
	RateResidual float64
	GapResidual  float64
	// Period is the raw outcome of the quantization solver (buffered platforms).
	Period quantize.Fit
}

// clone returns a copy of f that shares no slices with it.
func (f FitResult) clone() FitResult {
	f.Amplitudes = slices.Clone(f.Amplitudes)
	f.Levels = slices.Clone(f.Levels)
	f.Shape = f.Shape.Clone()

	return f
}

// Fit validates r and returns its best achievable parameters on p.
//
// Algorithm:
//  1. Validate, then reject rates above MaxRate (stimerr.ErrAchievability).
//  2. Round phase (≥ 1 step), interphase gap and inter-pulse gap to steps.
//  3. Encode the shape; the minimum slot is its length plus ⌈minGap/step⌉.
//  4. Buffered platforms: minimum slot > capacity → stimerr.ErrBufferOverflow;
//     otherwise solve the requested period over StepGrid(minSlot, capacity)
//     for the slot length S and the repeat count k. Free-running platforms
//     use S = max(minSlot, round(period)) and k = 1.
//  5. Two-pulse: place the second pulse at the offset in
//     [L1, S − L1 − minGap] closest to L1 + requested gap; ties take the
//     smallest offset.
//  6. Quantize amplitudes in the narrowest range holding the largest one.
//  7. Pulse count = max(1, round(duration · achievable rate)), at most MaxPulses.
//  8. Jitter floor: the longer of the placed shape plus min gap and the
//     MaxRate period, in steps.
//
// Fit is pure: equal inputs give equal results.
func Fit(p platform.Platform, r Request) (FitResult, error) {
	if err := Validate(p, r); err != nil {
		return FitResult{}, err
	}

	return fitValidated(p, r)
}

// fitValidated runs steps 1 (achievability) to 7 on an already validated request.
func fitValidated(p platform.Platform, r Request) (FitResult, error) {
	if err := checkAchievable(p, r); err != nil {
		return FitResult{}, err
	}

	var (
		step = p.StepUs
		asym = r.asymmetry()
		lay  Layout
	)
	lay.PhaseSteps = quantize.NearestSteps(r.PhaseUs, step)
	if lay.PhaseSteps < 1 {
		lay.PhaseSteps = 1
	}
	lay.GapSteps = quantize.NearestSteps(r.GapUs, step)
	if r.Topology == shape.Quadraphasic {
		lay.InterPulseSteps = quantize.NearestSteps(r.InterPulseUs, step)
	}
	lay.MinGapSteps = p.MinGapSteps()

	spec := shape.Spec{
		Topology:   r.Topology,
		PhaseSteps: lay.PhaseSteps,
		GapSteps:   lay.GapSteps,
		Sign:       r.Polarity.sign(),
		Asymmetry:  asym,
		InterPulse: lay.InterPulseSteps,
		SecondSign: r.SecondSign,
	}
	first := shape.BiphasicSteps(lay.PhaseSteps, lay.GapSteps, asym)
	if r.Topology == shape.TwoPulse {
		spec.SecondOffset = first
	}
	sh, err := shape.Encode(spec)
	if err != nil {
		return FitResult{}, err
	}
	lay.MinSlotSteps = sh.Len() + lay.MinGapSteps

	// Period: slot length and repeats.
	target := 1e6 / (r.RatePPS * step)
	var period quantize.Fit
	if p.FixedBuffer() {
		if lay.MinSlotSteps > p.BufferSteps {
			return FitResult{}, wrapf(MethodFit, stimerr.ErrBufferOverflow, "pulse needs %d steps, %s buffer holds %d",
				lay.MinSlotSteps, p.Name, p.BufferSteps)
		}
		grid, err := quantize.StepGrid(lay.MinSlotSteps, p.BufferSteps)
		if err != nil {
			return FitResult{}, err
		}
		if period, err = quantize.Solve(target, grid); err != nil {
			return FitResult{}, err
		}
	} else {
		s := math.Max(float64(lay.MinSlotSteps), math.Round(target))
		period = quantize.Fit{
			Value:         s,
			Candidate:     s,
			Repeat:        1,
			Residual:      math.Abs(target - s),
			RatioResidual: math.Abs(target/s - 1),
		}
	}
	lay.SlotSteps = int(period.Candidate)

	// Second pulse placement inside the fixed slot.
	var twoGapUs, gapResidual float64
	if r.Topology == shape.TwoPulse {
		lay.SecondOffset = secondOffset(first, lay.SlotSteps-first-lay.MinGapSteps, r.TwoPulseGapUs/step)
		spec.SecondOffset = lay.SecondOffset
		if sh, err = shape.Encode(spec); err != nil {
			return FitResult{}, err
		}
		twoGapUs = float64(lay.SecondOffset-first) * step
		gapResidual = math.Abs(twoGapUs - r.TwoPulseGapUs)
	}
	lay.ShapeSteps = sh.Len()
	lay.PaddingSteps = lay.SlotSteps - lay.ShapeSteps
	lay.MinPeriodSteps = max(lay.ShapeSteps+lay.MinGapSteps, quantize.CeilSteps(minPeriodUs(p, r), step))

	out := FitResult{
		Platform:      p.Name,
		Topology:      r.Topology,
		PeriodSteps:   lay.SlotSteps * period.Repeat,
		PhaseUs:       float64(lay.PhaseSteps) * step,
		GapUs:         float64(lay.GapSteps) * step,
		InterPulseUs:  float64(lay.InterPulseSteps) * step,
		TwoPulseGapUs: twoGapUs,
		Repeats:       period.Repeat,
		Layout:        lay,
		Shape:         sh,
		GapResidual:   gapResidual,
		Period:        period,
	}
	out.RatePPS = 1e6 / (float64(out.PeriodSteps) * step)
	out.RateResidual = math.Abs(out.RatePPS - r.RatePPS)

	if err := fitAmplitudes(p, r, &out); err != nil {
		return FitResult{}, err
	}

	out.PulseCount = int(math.Round(r.DurationS * out.RatePPS))
	if out.PulseCount < 1 {
		out.PulseCount = 1
	}
	if out.PulseCount > MaxPulses {
		return FitResult{}, wrapf(MethodFit, stimerr.ErrValidation, "%d pulses exceed the limit of %d", out.PulseCount, MaxPulses)
	}

	return out, nil
}

// secondOffset returns the integer offset in [lo, hi] closest to lo + gapSteps.
// The distance is convex in the offset, so clamping the rounded optimum is
// exact; a half-way optimum rounds down, which keeps the smallest offset on ties.
// When hi < lo the slot has no slack and lo is returned.
func secondOffset(lo, hi int, gapSteps float64) int {
	want := int(math.Ceil(float64(lo) + gapSteps - 0.5))
	if want > hi {
		want = hi
	}
	if want < lo {
		want = lo
	}

	return want
}

// fitAmplitudes fills the amplitude fields of out.
func fitAmplitudes(p platform.Platform, r Request, out *FitResult) error {
	idx, err := p.RangeFor(r.maxAmplitude())
	if err != nil {
		return err
	}
	asym := r.asymmetry()
	out.RangeIndex = idx
	out.RangeMax = p.Ranges[idx]
	out.AmplitudeStep = p.AmplitudeStep(idx, asym)
	out.Amplitudes = make([]float64, len(r.Amplitudes))
	out.Levels = make([]int, len(r.Amplitudes))
	for i, a := range r.Amplitudes {
		out.Amplitudes[i], out.Levels[i] = p.QuantizeAmplitude(a, idx, asym)
	}

	return nil
}
