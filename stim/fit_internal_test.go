package stim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecondOffset(t *testing.T) {
	cases := []struct {
		lo, hi int
		gap    float64
		want   int
	}{
		{22, 100, 20, 42},
		{22, 100, 20.5, 42}, // 42 and 43 tie: smallest offset
		{22, 100, 20.6, 43},
		{22, 27, 20, 27},
		{22, 100, 0, 22},
		{22, 21, 5, 22},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, secondOffset(c.lo, c.hi, c.gap), "%+v", c)
	}
}

func TestPolarityText(t *testing.T) {
	for _, p := range []Polarity{NegativeFirst, PositiveFirst, Alternating} {
		b, err := p.MarshalText()
		assert.NoError(t, err)
		var back Polarity
		assert.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, p, back)
	}
	_, err := ParsePolarity("sideways")
	assert.Error(t, err)
	assert.Equal(t, "polarity(7)", Polarity(7).String())
}
