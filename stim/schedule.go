package stim

import (
	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/train"
)

// Schedule turns a fit of r on p into the device sequence and electrodogram.
// Modulated amplitudes are re-quantized on the grid of the fitted range.
// Jitter draws from the rng configured through WithRand or WithSeed.
func Schedule(p platform.Platform, r Request, fit FitResult, opts ...Option) (train.Train, error) {
	return schedule(p, r, fit, newConfig(opts...))
}

func schedule(p platform.Platform, r Request, fit FitResult, cfg config) (train.Train, error) {
	asym := r.asymmetry()
	idx := fit.RangeIndex

	return train.Build(train.Config{
		Shape:          fit.Shape,
		StepUs:         p.StepUs,
		SlotSteps:      fit.Layout.SlotSteps,
		Repeats:        fit.Repeats,
		MinPeriodSteps: fit.Layout.MinPeriodSteps,
		Count:          fit.PulseCount,
		Electrodes:     append([]int(nil), r.Electrodes...),
		Amplitudes:     append([]float64(nil), fit.Amplitudes...),
		ElectrodeCount: p.Electrodes,
		Alternate:      r.Polarity == Alternating,
		Modulator:      r.Modulator,
		JitterUs:       r.JitterUs,
		Rand:           cfg.rng,
		Quantize: func(a float64) float64 {
			v, _ := p.QuantizeAmplitude(a, idx, asym)
			return v
		},
	})
}
