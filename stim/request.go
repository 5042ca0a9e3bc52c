package stim

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
	"github.com/katalvlaran/pulsetrain/train"
)

// Polarity selects the leading-phase polarity of every pulse in a train.
type Polarity int

const (
	// NegativeFirst leads every pulse with a cathodic phase (zero value).
	NegativeFirst Polarity = iota
	// PositiveFirst leads every pulse with an anodic phase.
	PositiveFirst
	// Alternating starts negative and flips polarity on every pulse.
	Alternating
)

var polarityNames = [...]string{
	NegativeFirst: "negative",
	PositiveFirst: "positive",
	Alternating:   "alternating",
}

// String returns the canonical name.
func (p Polarity) String() string {
	if p < 0 || int(p) >= len(polarityNames) {
		return fmt.Sprintf("polarity(%d)", int(p))
	}

	return polarityNames[p]
}

// ParsePolarity maps "negative", "positive" or "alternating" to a Polarity.
func ParsePolarity(name string) (Polarity, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range polarityNames {
		if s == n {
			return Polarity(i), nil
		}
	}

	return 0, stimerr.Wrap("ParsePolarity", stimerr.ErrValidation, "unknown polarity %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (p Polarity) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Polarity) UnmarshalText(b []byte) error {
	v, err := ParsePolarity(string(b))
	if err != nil {
		return err
	}
	*p = v

	return nil
}

// sign returns the leading-phase sign of the first pulse.
func (p Polarity) sign() shape.Sign {
	if p == PositiveFirst {
		return shape.Positive
	}

	return shape.Negative
}

// Request holds the user-facing stimulation parameters. Durations are in
// µs unless the field name says otherwise; amplitudes are in the device
// unit of the target platform.
//
// Request is a value: Snapshot.With copies it before applying changes.
type Request struct {
	Topology      shape.Topology   `json:"topology"`
	PhaseUs       float64          `json:"phase_us"`
	GapUs         float64          `json:"gap_us"`
	Electrodes    []int            `json:"electrodes"`
	RatePPS       float64          `json:"rate_pps"`
	Amplitudes    []float64        `json:"amplitudes"`
	MaxAmplitude  float64          `json:"max_amplitude,omitempty"` // 0 means the platform ceiling
	DurationS     float64          `json:"duration_s"`
	Polarity      Polarity         `json:"polarity"`
	SecondSign    shape.Sign       `json:"second_sign,omitempty"` // two-pulse only; 0 follows Polarity
	Asymmetry     int              `json:"asymmetry,omitempty"`   // 0 means 1
	TwoPulseGapUs float64          `json:"two_pulse_gap_us,omitempty"`
	InterPulseUs  float64          `json:"inter_pulse_us,omitempty"` // quadraphasic inter-stimulus gap
	JitterUs      float64          `json:"jitter_us,omitempty"`
	Modulator     *train.Modulator `json:"modulator,omitempty"`
}

// clone returns a deep copy of r.
func (r Request) clone() Request {
	out := r
	out.Electrodes = append([]int(nil), r.Electrodes...)
	out.Amplitudes = append([]float64(nil), r.Amplitudes...)
	if r.Modulator != nil {
		m := train.Modulator{
			Times:   append([]float64(nil), r.Modulator.Times...),
			Weights: append([]float64(nil), r.Modulator.Weights...),
		}
		out.Modulator = &m
	}

	return out
}

// asymmetry returns the effective ratio (zero value → 1).
func (r Request) asymmetry() int {
	if r.Asymmetry == 0 {
		return 1
	}

	return r.Asymmetry
}

// channels returns the number of addressed channels of r.Topology.
func (r Request) channels() int {
	if r.Topology == shape.TwoPulse {
		return 2
	}

	return 1
}

// maxAmplitude returns the largest requested amplitude.
func (r Request) maxAmplitude() float64 {
	var m float64
	for _, a := range r.Amplitudes {
		if a > m {
			m = a
		}
	}

	return m
}
