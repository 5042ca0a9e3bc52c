package platform

import (
	"math"

	"github.com/katalvlaran/pulsetrain/shape"
)

// Current-level law of the NIC family: I = 17.5 µA · 100^(CU/255).
const (
	nicBaseMicroAmps = 17.5
	nicLawBase       = 100.0
)

var allTopologies = []shape.Topology{
	shape.Biphasic,
	shape.Triphasic,
	shape.PrecisionTriphasic,
	shape.Quadraphasic,
	shape.TwoPulse,
}

// NIC is a free-running research interface: every period is a multiple of
// the 0.2 µs clock, amplitudes are current levels 0..255.
var NIC = register(Platform{
	Name:        "nic",
	Description: "free-running current-level interface (0.2 µs clock)",
	StepUs:      0.2,
	BufferSteps: 0,
	Ranges:      []float64{255},
	Levels:      DefaultLevels,
	Unit:        "CU",
	MinGapUs:    7.8,
	Electrodes:  22,
	Topologies:  allTopologies,
	microAmps: func(cu float64) float64 {
		return nicBaseMicroAmps * math.Pow(nicLawBase, cu/DefaultLevels)
	},
})

// RIB2 packs pulses into a 256-step periodic buffer at 2.5 µs per step and
// drives four current ranges in µA.
var RIB2 = register(Platform{
	Name:        "rib2",
	Description: "256-step buffered interface with four current ranges",
	StepUs:      2.5,
	BufferSteps: 256,
	Ranges:      []float64{150, 300, 600, 1200},
	Levels:      DefaultLevels,
	Unit:        "uA",
	MinGapUs:    2.5,
	Electrodes:  12,
	Topologies:  []shape.Topology{shape.Biphasic, shape.Triphasic, shape.PrecisionTriphasic, shape.TwoPulse},
})

// BEDCS is a buffered interface on a 10.776 µs time quantum with two
// current ranges.
var BEDCS = register(Platform{
	Name:        "bedcs",
	Description: "256-step buffered interface on a 10.776 µs quantum",
	StepUs:      10.776,
	BufferSteps: 256,
	Ranges:      []float64{510, 2040},
	Levels:      DefaultLevels,
	Unit:        "uA",
	MinGapUs:    10.776,
	Electrodes:  16,
	Topologies:  []shape.Topology{shape.Biphasic, shape.Triphasic, shape.Quadraphasic},
})
