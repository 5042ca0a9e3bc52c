package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// requireZeroEnds asserts that every channel trace starts and ends at zero.
func requireZeroEnds(t *testing.T, s shape.Shape) {
	t.Helper()
	for ch := 0; ch < s.Channels; ch++ {
		bp := s.Breakpoints(ch)
		require.NotEmpty(t, bp, "channel %d", ch)
		assert.Zero(t, bp[0].Amplitude)
		assert.Zero(t, bp[len(bp)-1].Amplitude)
	}
}

// TestEncode_BiphasicChargeBalance sums amplitude×duration for every
// supported asymmetry ratio; the result must be exactly zero.
func TestEncode_BiphasicChargeBalance(t *testing.T) {
	for _, r := range shape.Asymmetries {
		for _, sign := range []shape.Sign{shape.Positive, shape.Negative} {
			s, err := shape.Encode(shape.Spec{
				Topology:   shape.Biphasic,
				PhaseSteps: 17,
				GapSteps:   3,
				Sign:       sign,
				Asymmetry:  r,
			})
			require.NoError(t, err, "r=%d", r)
			require.Len(t, s.Phases, 2)

			// Integrate breakpoints: area of each plateau.
			var q float64
			bp := s.Breakpoints(0)
			for i := 1; i < len(bp); i++ {
				q += bp[i-1].Amplitude * float64(bp[i].Step-bp[i-1].Step)
			}
			assert.Zero(t, q, "r=%d sign=%d", r, sign)
			assert.Zero(t, s.Charge(0))

			assert.Equal(t, 17*r, s.Phases[0].Steps)
			assert.Equal(t, float64(sign)/float64(r), s.Phases[0].Amplitude)
			assert.Equal(t, -float64(sign), s.Phases[1].Amplitude)
			assert.Equal(t, shape.BiphasicSteps(17, 3, r), s.Len())
			requireZeroEnds(t, s)
		}
	}
}

// TestEncode_Layouts pins the exact phase layout of every topology.
func TestEncode_Layouts(t *testing.T) {
	tests := []struct {
		name   string
		spec   shape.Spec
		phases []shape.Phase
		length int
	}{
		{
			name: "biphasic",
			spec: shape.Spec{Topology: shape.Biphasic, PhaseSteps: 10, GapSteps: 3, Sign: shape.Positive},
			phases: []shape.Phase{
				{Start: 0, Steps: 10, Amplitude: 1},
				{Start: 13, Steps: 10, Amplitude: -1},
			},
			length: 23,
		},
		{
			name: "triphasic",
			spec: shape.Spec{Topology: shape.Triphasic, PhaseSteps: 10, GapSteps: 2, Sign: shape.Positive},
			phases: []shape.Phase{
				{Start: 0, Steps: 10, Amplitude: -0.5},
				{Start: 12, Steps: 10, Amplitude: 1},
				{Start: 24, Steps: 10, Amplitude: -0.5},
			},
			length: 34,
		},
		{
			name: "precision triphasic odd phase",
			spec: shape.Spec{Topology: shape.PrecisionTriphasic, PhaseSteps: 7, GapSteps: 2, Sign: shape.Negative},
			phases: []shape.Phase{
				{Start: 0, Steps: 3, Amplitude: 1},
				{Start: 5, Steps: 7, Amplitude: -1},
				{Start: 14, Steps: 4, Amplitude: 1},
			},
			length: 18,
		},
		{
			name: "quadraphasic",
			spec: shape.Spec{Topology: shape.Quadraphasic, PhaseSteps: 5, GapSteps: 1, InterPulse: 4, Sign: shape.Positive},
			phases: []shape.Phase{
				{Start: 0, Steps: 5, Amplitude: 1},
				{Start: 6, Steps: 5, Amplitude: -1},
				{Start: 15, Steps: 5, Amplitude: -1, Group: 1},
				{Start: 21, Steps: 5, Amplitude: 1, Group: 1},
			},
			length: 26,
		},
		{
			name: "two pulse",
			spec: shape.Spec{Topology: shape.TwoPulse, PhaseSteps: 4, GapSteps: 2, SecondOffset: 20, Sign: shape.Positive, SecondSign: shape.Negative},
			phases: []shape.Phase{
				{Start: 0, Steps: 4, Amplitude: 1},
				{Start: 6, Steps: 4, Amplitude: -1},
				{Start: 20, Steps: 4, Amplitude: -1, Channel: 1, Group: 1},
				{Start: 26, Steps: 4, Amplitude: 1, Channel: 1, Group: 1},
			},
			length: 30,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := shape.Encode(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.phases, s.Phases)
			assert.Equal(t, tc.length, s.Len())
			assert.Equal(t, tc.spec.Topology, s.Topology)
			for ch := 0; ch < s.Channels; ch++ {
				assert.Zero(t, s.Charge(ch))
			}
			requireZeroEnds(t, s)
			assert.NoError(t, s.Check())
		})
	}
}

// TestEncode_Errors covers every validation branch.
func TestEncode_Errors(t *testing.T) {
	bad := []shape.Spec{
		{Topology: shape.Biphasic, PhaseSteps: 0, Sign: shape.Positive},
		{Topology: shape.Biphasic, PhaseSteps: 4, GapSteps: -1, Sign: shape.Positive},
		{Topology: shape.Biphasic, PhaseSteps: 4, Sign: 0},
		{Topology: shape.Biphasic, PhaseSteps: 4, Sign: shape.Positive, Asymmetry: 3},
		{Topology: shape.Triphasic, PhaseSteps: 4, Sign: shape.Positive, Asymmetry: 2},
		{Topology: shape.PrecisionTriphasic, PhaseSteps: 1, Sign: shape.Positive},
		{Topology: shape.TwoPulse, PhaseSteps: 4, GapSteps: 2, SecondOffset: 9, Sign: shape.Positive},
		{Topology: shape.TwoPulse, PhaseSteps: 4, SecondOffset: 20, Sign: shape.Positive, SecondSign: 2},
		{Topology: shape.Topology(42), PhaseSteps: 4, Sign: shape.Positive},
	}
	for i, spec := range bad {
		_, err := shape.Encode(spec)
		assert.ErrorIs(t, err, stimerr.ErrValidation, "case %d", i)
	}
}

// TestShape_Inverted flips polarity without touching timing.
func TestShape_Inverted(t *testing.T) {
	s, err := shape.Encode(shape.Spec{Topology: shape.Biphasic, PhaseSteps: 5, GapSteps: 1, Sign: shape.Positive, Asymmetry: 4})
	require.NoError(t, err)
	inv := s.Inverted()
	require.Len(t, inv.Phases, len(s.Phases))
	for i := range s.Phases {
		assert.Equal(t, -s.Phases[i].Amplitude, inv.Phases[i].Amplitude)
		assert.Equal(t, s.Phases[i].Start, inv.Phases[i].Start)
	}
	assert.Equal(t, 0.25, s.Phases[0].Amplitude, "original is untouched")
	assert.NoError(t, inv.Check())
}

// TestShape_CheckDetectsViolations feeds hand-made broken shapes to Check.
func TestShape_CheckDetectsViolations(t *testing.T) {
	unbalanced := shape.Shape{Channels: 1, Phases: []shape.Phase{
		{Start: 0, Steps: 4, Amplitude: 1},
		{Start: 4, Steps: 3, Amplitude: -1},
	}}
	assert.ErrorIs(t, unbalanced.Check(), stimerr.ErrValidation)

	samePolarity := shape.Shape{Channels: 1, Phases: []shape.Phase{
		{Start: 0, Steps: 4, Amplitude: 1},
		{Start: 4, Steps: 4, Amplitude: 1},
		{Start: 8, Steps: 8, Amplitude: -1},
	}}
	assert.ErrorIs(t, samePolarity.Check(), stimerr.ErrValidation)

	overlap := shape.Shape{Channels: 1, Phases: []shape.Phase{
		{Start: 0, Steps: 4, Amplitude: 1},
		{Start: 2, Steps: 4, Amplitude: -1},
	}}
	assert.ErrorIs(t, overlap.Check(), stimerr.ErrValidation)

	assert.ErrorIs(t, shape.Shape{}.Check(), stimerr.ErrValidation)
}

// TestBudget pins the phase factors used by the achievability bound.
func TestBudget(t *testing.T) {
	f, g := shape.Budget(shape.Biphasic, 1)
	assert.Equal(t, 2.0, f)
	assert.Equal(t, 1, g)

	f, _ = shape.Budget(shape.Biphasic, 8)
	assert.Equal(t, 9.0, f)

	f, g = shape.Budget(shape.Triphasic, 1)
	assert.Equal(t, 3.0, f)
	assert.Equal(t, 2, g)

	f, _ = shape.Budget(shape.TwoPulse, 0)
	assert.Equal(t, 4.0, f)
}

// TestTopology_Text round-trips canonical names.
func TestTopology_Text(t *testing.T) {
	for _, top := range []shape.Topology{shape.Biphasic, shape.Triphasic, shape.PrecisionTriphasic, shape.Quadraphasic, shape.TwoPulse} {
		b, err := top.MarshalText()
		require.NoError(t, err)
		var back shape.Topology
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, top, back)
	}
	_, err := shape.ParseTopology("pentaphasic")
	assert.ErrorIs(t, err, stimerr.ErrValidation)
	top, err := shape.ParseTopology(" Two-Pulse ")
	require.NoError(t, err)
	assert.Equal(t, shape.TwoPulse, top)
}
