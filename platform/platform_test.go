package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// TestPresets_Valid ensures every built-in descriptor passes Validate.
func TestPresets_Valid(t *testing.T) {
	require.Equal(t, []string{"bedcs", "nic", "rib2"}, platform.Names())
	for _, p := range platform.All() {
		assert.NoError(t, p.Validate(), p.Name)
	}
}

// TestLookup resolves names case-insensitively and rejects unknown ones.
func TestLookup(t *testing.T) {
	p, err := platform.Lookup(" RIB2 ")
	require.NoError(t, err)
	assert.Equal(t, platform.RIB2.Name, p.Name)
	assert.True(t, p.FixedBuffer())

	_, err = platform.Lookup("cic9")
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)
}

// TestValidate_Broken covers descriptor bugs.
func TestValidate_Broken(t *testing.T) {
	broken := []platform.Platform{
		{},
		{Name: "x", StepUs: 0, Levels: 1, Electrodes: 1, Ranges: []float64{1}, Topologies: []shape.Topology{shape.Biphasic}},
		{Name: "x", StepUs: 1, Levels: 1, Electrodes: 1, Ranges: []float64{2, 1}, Topologies: []shape.Topology{shape.Biphasic}},
		{Name: "x", StepUs: 1, Levels: 1, Electrodes: 1, Ranges: []float64{1, 1}, Topologies: []shape.Topology{shape.Biphasic}},
		{Name: "x", StepUs: 1, Levels: 1, Electrodes: 0, Ranges: []float64{1}, Topologies: []shape.Topology{shape.Biphasic}},
		{Name: "x", StepUs: 1, Levels: 1, Electrodes: 1, Ranges: []float64{1}},
		{Name: "x", StepUs: 1, BufferSteps: -1, Levels: 1, Electrodes: 1, Ranges: []float64{1}, Topologies: []shape.Topology{shape.Biphasic}},
	}
	for i, p := range broken {
		assert.ErrorIs(t, p.Validate(), stimerr.ErrConfiguration, "case %d", i)
	}
}

// TestAmplitudeGrid checks range selection, rounding and widening.
func TestAmplitudeGrid(t *testing.T) {
	p := platform.RIB2

	idx, err := p.RangeFor(150)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = p.RangeFor(150.01)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	_, err = p.RangeFor(1300)
	assert.ErrorIs(t, err, stimerr.ErrValidation)

	// 300 µA / 255 levels ≈ 1.176 µA per level.
	v, level := p.QuantizeAmplitude(200, 1, 1)
	assert.Equal(t, 170, level)
	assert.InDelta(t, 170*300.0/255, v, 1e-9)

	// r=16 widens the step fourfold.
	assert.InDelta(t, 4*300.0/255, p.AmplitudeStep(1, 16), 1e-12)
	assert.InDelta(t, 300.0/255, p.AmplitudeStep(1, 4), 1e-12)

	// Clamping keeps the value inside the range.
	v, level = p.QuantizeAmplitude(300, 1, 32)
	assert.LessOrEqual(t, v, 300.0)
	assert.Equal(t, 31, level)

	// NIC levels are whole current units.
	v, level = platform.NIC.QuantizeAmplitude(100.4, 0, 1)
	assert.Equal(t, 100.0, v)
	assert.Equal(t, 100, level)
}

// TestTiming covers the min-gap rounding and the µA conversion.
func TestTiming(t *testing.T) {
	assert.Equal(t, 39, platform.NIC.MinGapSteps())
	assert.Equal(t, 1, platform.RIB2.MinGapSteps())
	assert.Equal(t, 1, platform.BEDCS.MinGapSteps())
	assert.False(t, platform.NIC.FixedBuffer())

	assert.InDelta(t, 17.5, platform.NIC.MicroAmps(0), 1e-9)
	assert.InDelta(t, 1750, platform.NIC.MicroAmps(255), 1e-6)
	assert.Equal(t, 42.0, platform.RIB2.MicroAmps(42))

	assert.True(t, platform.BEDCS.Supports(shape.Quadraphasic))
	assert.False(t, platform.RIB2.Supports(shape.Quadraphasic))
	assert.Equal(t, 255.0, platform.NIC.MaxAmplitude())
}
