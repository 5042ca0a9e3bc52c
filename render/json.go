package render

import (
	"encoding/json"
	"io"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/train"
)

// JSON renders the sequence as one JSON document. Amplitudes are reported in
// device units and, through the platform conversion, in µA.
type JSON struct {
	Indent string // empty for compact output
}

// Document is the JSON form of a sequence.
type Document struct {
	Platform   string        `json:"platform"`
	Unit       string        `json:"unit"`
	StepUs     float64       `json:"step_us"`
	PulseCount int           `json:"pulse_count"`
	TotalSteps int64         `json:"total_steps"`
	DurationS  float64       `json:"duration_s"`
	Commands   []CommandJSON `json:"commands"`
}

// CommandJSON is the JSON form of one command.
type CommandJSON struct {
	Kind        train.Kind     `json:"kind"`
	Pulse       int            `json:"pulse"`
	Topology    shape.Topology `json:"topology"`
	Electrodes  []int          `json:"electrodes"`
	Amplitudes  []float64      `json:"amplitudes"`
	MicroAmps   []float64      `json:"micro_amps"`
	SlotSteps   int            `json:"slot_steps"`
	SilentSlots int            `json:"silent_slots"`
	PeriodSteps int            `json:"period_steps"`
	Repeat      int            `json:"repeat"`
	StartStep   int64          `json:"start_step"`
	Phases      []PhaseJSON    `json:"phases"`
}

// PhaseJSON is the JSON form of one phase.
type PhaseJSON struct {
	Start     int     `json:"start"`
	Steps     int     `json:"steps"`
	Amplitude float64 `json:"amplitude"`
	Channel   int     `json:"channel"`
}

// NewDocument converts seq into its JSON form.
func NewDocument(seq train.Sequence, p platform.Platform) Document {
	doc := Document{
		Platform:   p.Name,
		Unit:       p.Unit,
		StepUs:     seq.StepUs,
		PulseCount: seq.PulseCount,
		TotalSteps: seq.TotalSteps,
		DurationS:  float64(seq.TotalSteps) * seq.StepUs * 1e-6,
		Commands:   make([]CommandJSON, len(seq.Commands)),
	}
	for i, c := range seq.Commands {
		cj := CommandJSON{
			Kind:        c.Kind,
			Pulse:       c.Pulse,
			Topology:    c.Shape.Topology,
			Electrodes:  c.Electrodes,
			Amplitudes:  c.Amplitudes,
			MicroAmps:   make([]float64, len(c.Amplitudes)),
			SlotSteps:   c.SlotSteps,
			SilentSlots: c.SilentSlots,
			PeriodSteps: c.PeriodSteps,
			Repeat:      c.Repeat,
			StartStep:   c.StartStep,
			Phases:      make([]PhaseJSON, len(c.Shape.Phases)),
		}
		for j, a := range c.Amplitudes {
			cj.MicroAmps[j] = p.MicroAmps(a)
		}
		for j, ph := range c.Shape.Phases {
			cj.Phases[j] = PhaseJSON{Start: ph.Start, Steps: ph.Steps, Amplitude: ph.Amplitude, Channel: ph.Channel}
		}
		doc.Commands[i] = cj
	}

	return doc
}

// Render implements Sink.
func (j JSON) Render(w io.Writer, seq train.Sequence, p platform.Platform) error {
	enc := json.NewEncoder(w)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}

	return enc.Encode(NewDocument(seq, p))
}
