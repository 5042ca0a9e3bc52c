package shape

import (
	"fmt"
	"slices"
	"strings"

	"github.com/katalvlaran/pulsetrain/stimerr"
)

// Topology selects the phase layout of an elementary pulse.
type Topology int

const (
	// Biphasic is two equal-charge phases of opposite polarity (optionally asymmetric).
	Biphasic Topology = iota
	// Triphasic is a full-amplitude centre phase flanked by half-amplitude phases.
	Triphasic
	// PrecisionTriphasic is a full-amplitude centre phase flanked by half-duration phases.
	PrecisionTriphasic
	// Quadraphasic is two back-to-back biphasic pulses of opposite starting polarity.
	Quadraphasic
	// TwoPulse is two independently addressed biphasic pulses inside one period.
	TwoPulse
)

var topologyNames = [...]string{
	Biphasic:           "biphasic",
	Triphasic:          "triphasic",
	PrecisionTriphasic: "precision-triphasic",
	Quadraphasic:       "quadraphasic",
	TwoPulse:           "two-pulse",
}

// String returns the canonical lowercase name.
func (t Topology) String() string {
	if t < 0 || int(t) >= len(topologyNames) {
		return fmt.Sprintf("topology(%d)", int(t))
	}

	return topologyNames[t]
}

// ParseTopology maps a canonical name back to its Topology.
func ParseTopology(name string) (Topology, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range topologyNames {
		if s == n {
			return Topology(i), nil
		}
	}

	return 0, stimerr.Wrap("ParseTopology", stimerr.ErrValidation, "unknown topology %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Topology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Topology) UnmarshalText(b []byte) error {
	v, err := ParseTopology(string(b))
	if err != nil {
		return err
	}
	*t = v

	return nil
}

// Sign is the polarity of the leading phase: +1 or −1.
type Sign int

const (
	// Positive leads with a positive (anodic) phase.
	Positive Sign = 1
	// Negative leads with a negative (cathodic) phase.
	Negative Sign = -1
)

// Phase is one constant-amplitude segment of a shape.
type Phase struct {
	Start     int     // first step (inclusive) relative to the shape origin
	Steps     int     // duration in steps (> 0)
	Amplitude float64 // normalized signed amplitude
	Channel   int     // 0 for single-channel shapes; 0/1 for TwoPulse
	Group     int     // phase group; polarity alternates within a group
}

// End returns the first step after the phase.
func (p Phase) End() int { return p.Start + p.Steps }

// Breakpoint is one corner of the piecewise-constant amplitude trace.
type Breakpoint struct {
	Step      int
	Amplitude float64
}

// Spec is the input of Encode. All durations are in steps.
type Spec struct {
	Topology     Topology
	PhaseSteps   int  // P, the (short) phase duration
	GapSteps     int  // interphase gap
	Sign         Sign // polarity of the leading phase
	Asymmetry    int  // r ∈ {1,2,4,8,16,32}; 0 means 1
	InterPulse   int  // Quadraphasic: zero steps between the two biphasic halves
	SecondOffset int  // TwoPulse: start step of the second pulse
	SecondSign   Sign // TwoPulse: polarity of the second pulse; 0 means Sign
}

// Shape is an encoded elementary pulse (or pulse pair).
type Shape struct {
	Topology Topology
	Phases   []Phase
	Length   int // total steps from origin to the end of the last phase
	Channels int // number of addressed channels (1 or 2)
}

// Len returns the number of steps spanned by the shape.
func (s Shape) Len() int { return s.Length }

// Charge returns Σ amplitude·steps of the phases on channel ch.
func (s Shape) Charge(ch int) float64 {
	var q float64
	for _, p := range s.Phases {
		if p.Channel == ch {
			q += p.Amplitude * float64(p.Steps)
		}
	}

	return q
}

// Breakpoints returns the corners of channel ch's trace, starting and ending
// at zero amplitude. Adjacent phases produce a vertical edge at their shared step.
func (s Shape) Breakpoints(ch int) []Breakpoint {
	out := make([]Breakpoint, 0, 4*len(s.Phases))
	for _, p := range s.Phases {
		if p.Channel != ch {
			continue
		}
		out = append(out,
			Breakpoint{Step: p.Start, Amplitude: 0},
			Breakpoint{Step: p.Start, Amplitude: p.Amplitude},
			Breakpoint{Step: p.End(), Amplitude: p.Amplitude},
			Breakpoint{Step: p.End(), Amplitude: 0},
		)
	}

	return out
}

// Clone returns a copy that shares no memory with s.
func (s Shape) Clone() Shape {
	s.Phases = slices.Clone(s.Phases)

	return s
}

// Inverted returns a copy with every amplitude negated; used for
// alternating-polarity trains.
func (s Shape) Inverted() Shape {
	out := s
	out.Phases = make([]Phase, len(s.Phases))
	for i, p := range s.Phases {
		p.Amplitude = -p.Amplitude
		out.Phases[i] = p
	}

	return out
}
