package train

import (
	"math/rand"
	"slices"

	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// Kind tags a device command.
type Kind int

const (
	// Periodic is a buffer executed Repeat times (slot + silent slots each time).
	Periodic Kind = iota
	// Atomic is one explicitly addressed pulse with its own amplitudes and period.
	Atomic
)

// String returns "periodic" or "atomic".
func (k Kind) String() string {
	if k == Atomic {
		return "atomic"
	}

	return "periodic"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "periodic":
		*k = Periodic
	case "atomic":
		*k = Atomic
	default:
		return stimerr.Wrap("Kind.UnmarshalText", stimerr.ErrValidation, "unknown command kind %q", b)
	}

	return nil
}

// Command is one entry of the device-ready sequence, in execution order.
type Command struct {
	Kind        Kind
	Pulse       int         // index of the first pulse covered by the command
	Shape       shape.Shape // phases in steps, normalized amplitude
	Electrodes  []int       // electrode id per shape channel (1-based)
	Amplitudes  []float64   // device amplitude per shape channel
	SlotSteps   int         // steps of the buffer holding the pulse
	SilentSlots int         // empty buffers following the pulse buffer
	PeriodSteps int         // steps from this pulse to the next one
	Repeat      int         // executions of the command (1 for Atomic)
	StartStep   int64       // absolute start of the first execution
}

// Sequence is the device-ready form of a train.
type Sequence struct {
	Commands   []Command
	StepUs     float64
	PulseCount int
	TotalSteps int64
}

// Clone returns a copy that shares no memory with s.
func (s Sequence) Clone() Sequence {
	s.Commands = slices.Clone(s.Commands)
	for i := range s.Commands {
		c := &s.Commands[i]
		c.Shape = c.Shape.Clone()
		c.Electrodes = slices.Clone(c.Electrodes)
		c.Amplitudes = slices.Clone(c.Amplitudes)
	}

	return s
}

// Point is one (time, amplitude) corner of an electrodogram trace.
type Point struct {
	Time      float64 // seconds from stimulus onset
	Amplitude float64 // device units, signed
}

// Electrodogram is the per-electrode trace of the whole stimulus.
// Traces[i] belongs to electrode i+1; untouched electrodes stay empty.
type Electrodogram struct {
	Traces     [][]Point
	PulseTimes []float64
}

// Trace returns the trace of electrode id (1-based), or nil when out of range.
func (e Electrodogram) Trace(id int) []Point {
	if id < 1 || id > len(e.Traces) {
		return nil
	}

	return e.Traces[id-1]
}

// Clone returns a copy that shares no memory with e.
func (e Electrodogram) Clone() Electrodogram {
	e.Traces = slices.Clone(e.Traces)
	for i := range e.Traces {
		e.Traces[i] = slices.Clone(e.Traces[i])
	}
	e.PulseTimes = slices.Clone(e.PulseTimes)

	return e
}

// Config is the input of Build.
type Config struct {
	Shape          shape.Shape
	StepUs         float64   // step duration in µs
	SlotSteps      int       // buffer (or period) length holding the pulse
	Repeats        int       // buffer repeats per period (≥ 1); period = SlotSteps·Repeats
	MinPeriodSteps int       // shortest legal period; jitter may not go below it
	Count          int       // number of pulses (≥ 1)
	Electrodes     []int     // electrode id per shape channel
	Amplitudes     []float64 // device amplitude per shape channel
	ElectrodeCount int       // size of the electrodogram table
	Alternate      bool      // invert polarity on odd pulses
	Modulator      *Modulator
	JitterUs       float64    // full jitter window; 0 disables jitter
	Rand           *rand.Rand // consumed by jitter; nil means RandFromSeed(0)

	// Quantize re-quantizes a modulated amplitude; nil keeps it unchanged.
	Quantize func(float64) float64
}

// Train is the outcome of Build.
type Train struct {
	Sequence      Sequence
	Electrodogram Electrodogram
	Periods       []int     // period of every pulse in steps
	Offsets       []int     // jitter offset of every pulse in steps (nil without jitter)
	Weights       []float64 // modulator weight of every pulse (nil without modulation)
}

// Clone returns a deep copy of t.
func (t Train) Clone() Train {
	return Train{
		Sequence:      t.Sequence.Clone(),
		Electrodogram: t.Electrodogram.Clone(),
		Periods:       slices.Clone(t.Periods),
		Offsets:       slices.Clone(t.Offsets),
		Weights:       slices.Clone(t.Weights),
	}
}

// Duration returns the stimulus length in seconds.
func (t Train) Duration() float64 {
	return float64(t.Sequence.TotalSteps) * t.Sequence.StepUs * 1e-6
}
