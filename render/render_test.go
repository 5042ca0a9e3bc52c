package render_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/render"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stimerr"
	"github.com/katalvlaran/pulsetrain/train"
)

// sequence builds three biphasic pulses on electrode 4 with the given
// alternation flag, on a 2.5 µs grid (40-step slot, five repeats).
func sequence(t *testing.T, alternate bool) train.Sequence {
	t.Helper()
	s, err := shape.Encode(shape.Spec{Topology: shape.Biphasic, PhaseSteps: 10, GapSteps: 4, Sign: shape.Negative})
	require.NoError(t, err)
	tr, err := train.Build(train.Config{
		Shape:          s,
		StepUs:         2.5,
		SlotSteps:      40,
		Repeats:        5,
		Count:          3,
		Electrodes:     []int{4},
		Amplitudes:     []float64{150},
		ElectrodeCount: 12,
		Alternate:      alternate,
	})
	require.NoError(t, err)

	return tr.Sequence
}

func TestText_Periodic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.Text{}.Render(&buf, sequence(t, false), platform.RIB2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "rib2: 3 pulses, 1 command, step 2.5 µs, total "), lines[0])
	assert.Contains(t, lines[1], "#0 periodic ×3")
	assert.Contains(t, lines[1], "period 200 steps")
	assert.Contains(t, lines[1], "slot 40 + 4 silent biphasic E4=150 uA")
}

func TestText_Atomic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.Text{}.Render(&buf, sequence(t, true), platform.RIB2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "3 commands")
	for i, l := range lines[1:] {
		assert.Contains(t, l, "atomic ×1 at ", "line %d", i)
	}
}

func TestJSON_Document(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.JSON{}.Render(&buf, sequence(t, false), platform.NIC))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "nic", doc["platform"])
	assert.Equal(t, "CU", doc["unit"])
	assert.Equal(t, 3.0, doc["pulse_count"])
	assert.Equal(t, 600.0, doc["total_steps"])

	cmds := doc["commands"].([]any)
	require.Len(t, cmds, 1)
	cmd := cmds[0].(map[string]any)
	assert.Equal(t, "periodic", cmd["kind"])
	assert.Equal(t, "biphasic", cmd["topology"])
	assert.Equal(t, 3.0, cmd["repeat"])
	assert.Len(t, cmd["phases"], 2)
	ua := cmd["micro_amps"].([]any)[0].(float64)
	assert.InDelta(t, 17.5*math.Pow(100, 150.0/255), ua, 1e-9)
}

func TestJSON_IndentAndTyped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.JSON{Indent: "  "}.Render(&buf, sequence(t, false), platform.RIB2))
	assert.Contains(t, buf.String(), "\n  \"platform\": \"rib2\"")

	doc := render.NewDocument(sequence(t, false), platform.RIB2)
	assert.Equal(t, []float64{150}, doc.Commands[0].MicroAmps, "µA platforms convert with the identity")
	assert.InDelta(t, 600*2.5e-6, doc.DurationS, 1e-12)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"json", "text"}, render.Formats())
	s, err := render.Lookup(" TEXT ")
	require.NoError(t, err)
	assert.IsType(t, render.Text{}, s)

	_, err = render.Lookup("vendor-script")
	assert.ErrorIs(t, err, stimerr.ErrConfiguration)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestText_WriteError(t *testing.T) {
	err := render.Text{}.Render(failingWriter{}, sequence(t, false), platform.RIB2)
	assert.EqualError(t, err, "disk full")
}

func TestSinkFunc(t *testing.T) {
	var got int
	var sink render.Sink = render.SinkFunc(func(_ io.Writer, seq train.Sequence, _ platform.Platform) error {
		got = seq.PulseCount
		return nil
	})
	require.NoError(t, sink.Render(nil, sequence(t, false), platform.NIC))
	assert.Equal(t, 3, got)
}
