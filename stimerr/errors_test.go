package stimerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvlaran/pulsetrain/stimerr"
)

// TestWrap_KeepsSentinel verifies that wrapped errors keep their class and
// carry the method prefix.
func TestWrap_KeepsSentinel(t *testing.T) {
	err := stimerr.Wrap("Fit", stimerr.ErrAchievability, "rate %g above %g", 12000.0, 9775.0)
	assert.ErrorIs(t, err, stimerr.ErrAchievability)
	assert.Contains(t, err.Error(), "Fit: rate 12000 above 9775")
}

// TestClass maps every sentinel (wrapped or not) back to itself.
func TestClass(t *testing.T) {
	cases := []error{
		stimerr.ErrValidation,
		stimerr.ErrAchievability,
		stimerr.ErrBufferOverflow,
		stimerr.ErrConfiguration,
	}
	for _, sentinel := range cases {
		assert.Equal(t, sentinel, stimerr.Class(sentinel))
		assert.Equal(t, sentinel, stimerr.Class(stimerr.Wrap("X", sentinel, "ctx")))
	}
	assert.Nil(t, stimerr.Class(nil))
	assert.Nil(t, stimerr.Class(errors.New("other")))
}
