// Package platform describes the discrete timing and amplitude grids of the
// supported stimulation hardware families.
//
// A Platform is an immutable capability descriptor supplied once per
// hardware family: the step granularity, the fixed buffer capacity (zero
// for free-running devices that accept any period), the amplitude ranges,
// the minimum inter-pulse gap and the electrode count. Fitting code never
// branches on the platform name; all device differences flow through the
// descriptor fields.
package platform

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// DefaultLevels is the number of amplitude steps inside one range.
const DefaultLevels = 255

// asymWidenThreshold is the asymmetry ratio above which the amplitude step
// is widened proportionally (the long, weak phase limits resolution).
const asymWidenThreshold = 4

// Platform is the capability descriptor of one hardware family.
type Platform struct {
	Name        string           // canonical lowercase name
	Description string           // human-readable label
	StepUs      float64          // time granularity in µs
	BufferSteps int              // fixed buffer capacity in steps; 0 = free-running
	Ranges      []float64        // ascending amplitude range ceilings, in Unit
	Levels      int              // steps per range (255 on every preset)
	Unit        string           // amplitude unit ("CU" or "uA")
	MinGapUs    float64          // minimum silent interval between pulses
	Electrodes  int              // electrode table size; ids are 1..Electrodes
	Topologies  []shape.Topology // topologies the device accepts

	// microAmps converts one device unit value to µA; nil means identity.
	microAmps func(float64) float64
}

// Clone returns a copy whose range and topology tables are not shared with p.
func (p Platform) Clone() Platform {
	p.Ranges = slices.Clone(p.Ranges)
	p.Topologies = slices.Clone(p.Topologies)

	return p
}

// FixedBuffer reports whether the platform packs pulses into a fixed-size
// periodic buffer.
func (p Platform) FixedBuffer() bool { return p.BufferSteps > 0 }

// MaxAmplitude returns the ceiling of the widest range.
func (p Platform) MaxAmplitude() float64 {
	if len(p.Ranges) == 0 {
		return 0
	}

	return p.Ranges[len(p.Ranges)-1]
}

// MinGapSteps returns the minimum inter-pulse gap rounded up to whole steps.
func (p Platform) MinGapSteps() int {
	if p.MinGapUs <= 0 {
		return 0
	}

	return int(math.Ceil(p.MinGapUs/p.StepUs - 1e-9))
}

// Supports reports whether topology t is accepted by the device.
func (p Platform) Supports(t shape.Topology) bool {
	for _, s := range p.Topologies {
		if s == t {
			return true
		}
	}

	return false
}

// MicroAmps converts an amplitude in device units to µA.
func (p Platform) MicroAmps(v float64) float64 {
	if p.microAmps == nil {
		return v
	}

	return p.microAmps(v)
}

// Validate checks the descriptor itself; a failure is a platform bug.
func (p Platform) Validate() error {
	const method = "Platform.Validate"
	switch {
	case p.Name == "":
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "empty name")
	case !(p.StepUs > 0) || math.IsInf(p.StepUs, 0):
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: step %g µs", p.Name, p.StepUs)
	case p.BufferSteps < 0:
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: buffer %d steps", p.Name, p.BufferSteps)
	case p.Levels < 1:
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: %d levels", p.Name, p.Levels)
	case p.Electrodes < 1:
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: %d electrodes", p.Name, p.Electrodes)
	case p.MinGapUs < 0:
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: min gap %g µs", p.Name, p.MinGapUs)
	case len(p.Ranges) == 0:
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: no amplitude ranges", p.Name)
	case len(p.Topologies) == 0:
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: no topologies", p.Name)
	}
	if !sort.Float64sAreSorted(p.Ranges) || p.Ranges[0] <= 0 {
		return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: ranges %v not ascending and positive", p.Name, p.Ranges)
	}
	for i := 1; i < len(p.Ranges); i++ {
		if p.Ranges[i] == p.Ranges[i-1] {
			return stimerr.Wrap(method, stimerr.ErrConfiguration, "%s: duplicate range %g", p.Name, p.Ranges[i])
		}
	}

	return nil
}

// RangeFor returns the index of the narrowest range whose ceiling holds
// amplitude a. Amplitudes above the widest range are a request error.
func (p Platform) RangeFor(a float64) (int, error) {
	for i, c := range p.Ranges {
		if a <= c {
			return i, nil
		}
	}

	return 0, stimerr.Wrap("RangeFor", stimerr.ErrValidation, "%s: amplitude %g %s above %g", p.Name, a, p.Unit, p.MaxAmplitude())
}

// AmplitudeStep returns the amplitude resolution of range idx for a pulse
// with the given asymmetry ratio: ceiling/Levels, widened by r/4 when r > 4.
func (p Platform) AmplitudeStep(idx, asymmetry int) float64 {
	step := p.Ranges[idx] / float64(p.Levels)
	if asymmetry > asymWidenThreshold {
		step *= float64(asymmetry) / asymWidenThreshold
	}

	return step
}

// QuantizeAmplitude rounds a to the nearest step of range idx and clamps it
// into [0, ceiling]. It returns the achievable amplitude and its level index.
// Rounding always succeeds: the grid is derived from the range a is clamped into.
func (p Platform) QuantizeAmplitude(a float64, idx, asymmetry int) (float64, int) {
	step := p.AmplitudeStep(idx, asymmetry)
	ceil := p.Ranges[idx]
	maxLevel := int(math.Floor(ceil/step + 1e-9))

	level := int(math.Round(a / step))
	if level < 0 {
		level = 0
	}
	if level > maxLevel {
		level = maxLevel
	}

	return float64(level) * step, level
}

// presets are the built-in hardware families keyed by canonical name.
var presets = map[string]Platform{}

func register(p Platform) Platform {
	presets[p.Name] = p

	return p
}

// Lookup returns the preset registered under name (case-insensitive).
func Lookup(name string) (Platform, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Platform{}, stimerr.Wrap("Lookup", stimerr.ErrConfiguration, "unknown platform %q (known: %s)", name, strings.Join(Names(), ", "))
	}

	return p, nil
}

// Names lists the registered presets in lexical order.
func Names() []string {
	out := make([]string, 0, len(presets))
	for n := range presets {
		out = append(out, n)
	}
	sort.Strings(out)

	return out
}

// All returns every preset ordered by name.
func All() []Platform {
	names := Names()
	out := make([]Platform, 0, len(names))
	for _, n := range names {
		out = append(out, presets[n])
	}

	return out
}
