package stim

import (
	"math"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// MaxPulses bounds the pulse count of one request. Every pulse costs an
// electrodogram entry even when the sequence collapses to one command.
const MaxPulses = 1 << 20

// Validate checks r against the platform descriptor p.
//
// Order of checks:
//  1. p itself (stimerr.ErrConfiguration);
//  2. topology support, polarity, asymmetry;
//  3. durations, rate, jitter window;
//  4. electrode ids and amplitude count per topology channel;
//  5. every amplitude ≤ MaxAmplitude and ≤ the platform ceiling;
//  6. modulator curve;
//  7. round(duration · rate) ≤ MaxPulses.
//
// All request failures wrap stimerr.ErrValidation.
func Validate(p platform.Platform, r Request) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.Supports(r.Topology) {
		return wrapf(MethodValidate, stimerr.ErrValidation, "%s does not support %s pulses", p.Name, r.Topology)
	}
	if r.Polarity < NegativeFirst || r.Polarity > Alternating {
		return wrapf(MethodValidate, stimerr.ErrValidation, "unknown %s", r.Polarity)
	}
	if r.SecondSign != 0 && r.SecondSign != shape.Positive && r.SecondSign != shape.Negative {
		return wrapf(MethodValidate, stimerr.ErrValidation, "second sign must be ±1, got %d", int(r.SecondSign))
	}

	asym := r.asymmetry()
	if !shape.ValidAsymmetry(asym) {
		return wrapf(MethodValidate, stimerr.ErrValidation, "asymmetry %d not in %v", asym, shape.Asymmetries)
	}
	if asym > 1 && r.Topology != shape.Biphasic && r.Topology != shape.TwoPulse {
		return wrapf(MethodValidate, stimerr.ErrValidation, "asymmetry %d unsupported for %s", asym, r.Topology)
	}

	if !positive(r.PhaseUs) {
		return wrapf(MethodValidate, stimerr.ErrValidation, "phase must be > 0 µs, got %g", r.PhaseUs)
	}
	if !positive(r.RatePPS) {
		return wrapf(MethodValidate, stimerr.ErrValidation, "rate must be > 0 pps, got %g", r.RatePPS)
	}
	if !positive(r.DurationS) {
		return wrapf(MethodValidate, stimerr.ErrValidation, "duration must be > 0 s, got %g", r.DurationS)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"gap", r.GapUs},
		{"two-pulse gap", r.TwoPulseGapUs},
		{"inter-pulse", r.InterPulseUs},
		{"jitter", r.JitterUs},
		{"max amplitude", r.MaxAmplitude},
	} {
		if !nonNegative(f.v) {
			return wrapf(MethodValidate, stimerr.ErrValidation, "%s must be finite and ≥ 0, got %g", f.name, f.v)
		}
	}

	if n := math.Round(r.DurationS * r.RatePPS); n > MaxPulses {
		return wrapf(MethodValidate, stimerr.ErrValidation, "%.0f pulses exceed the limit of %d", n, MaxPulses)
	}

	if err := validateChannels(p, r); err != nil {
		return err
	}
	if r.Modulator != nil {
		if err := r.Modulator.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// validateChannels checks electrode ids and amplitudes per channel.
func validateChannels(p platform.Platform, r Request) error {
	n := r.channels()
	if len(r.Electrodes) != n || len(r.Amplitudes) != n {
		return wrapf(MethodValidate, stimerr.ErrValidation, "%s needs %d electrode(s) and amplitude(s), got %d and %d",
			r.Topology, n, len(r.Electrodes), len(r.Amplitudes))
	}
	for _, e := range r.Electrodes {
		if e < 1 || e > p.Electrodes {
			return wrapf(MethodValidate, stimerr.ErrValidation, "electrode %d outside 1..%d", e, p.Electrodes)
		}
	}

	limit := p.MaxAmplitude()
	if r.MaxAmplitude > 0 && r.MaxAmplitude < limit {
		limit = r.MaxAmplitude
	}
	for i, a := range r.Amplitudes {
		if !nonNegative(a) {
			return wrapf(MethodValidate, stimerr.ErrValidation, "amplitude %d must be finite and ≥ 0, got %g", i, a)
		}
		if a > limit {
			return wrapf(MethodValidate, stimerr.ErrValidation, "amplitude %g %s exceeds maximum %g", a, p.Unit, limit)
		}
	}

	return nil
}

// MaxRate returns the highest rate in pulses/s that p can deliver for the
// phase, gaps, topology and asymmetry of r:
//
//	1e6 / (factor·phase + gaps·gap + twoPulseGap + interPulse + minGap)
//
// where factor and gaps come from shape.Budget. The inter-pulse term only
// applies to quadraphasic pulses and the two-pulse gap only to two-pulse
// stimuli.
func MaxRate(p platform.Platform, r Request) float64 {
	return 1e6 / minPeriodUs(p, r)
}

// minPeriodUs is the shortest pulse-to-pulse interval in µs.
func minPeriodUs(p platform.Platform, r Request) float64 {
	factor, gaps := shape.Budget(r.Topology, r.asymmetry())
	active := factor*r.PhaseUs + float64(gaps)*r.GapUs + p.MinGapUs
	switch r.Topology {
	case shape.TwoPulse:
		active += r.TwoPulseGapUs
	case shape.Quadraphasic:
		active += r.InterPulseUs
	}

	return active
}

// checkAchievable rejects rates above MaxRate before any fitting happens.
func checkAchievable(p platform.Platform, r Request) error {
	if limit := MaxRate(p, r); r.RatePPS > limit {
		return wrapf(MethodFit, stimerr.ErrAchievability, "rate %g pps above %s maximum %.4f pps for %g µs phase / %g µs gap",
			r.RatePPS, p.Name, limit, r.PhaseUs, r.GapUs)
	}

	return nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

func nonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 0) }
