package render

import (
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/train"
)

// Text renders one line per command with human-readable magnitudes:
//
//	nic: 442 pulses, 1 command, step 0.2 µs, total 1 s
//	#0 periodic ×442 period 11,312 steps (2.262 ms) slot 11,312 + 0 silent biphasic E3=100 CU
type Text struct{}

// Render implements Sink.
func (Text) Render(w io.Writer, seq train.Sequence, p platform.Platform) error {
	out := &errWriter{w: w}
	stepS := seq.StepUs * 1e-6

	out.printf("%s: %s pulses, %s, step %s µs, total %s\n",
		p.Name,
		humanize.Comma(int64(seq.PulseCount)),
		plural(len(seq.Commands), "command"),
		humanize.Ftoa(seq.StepUs),
		humanize.SIWithDigits(float64(seq.TotalSteps)*stepS, 3, "s"),
	)
	for i, c := range seq.Commands {
		out.printf("#%d %s ×%s", i, c.Kind, humanize.Comma(int64(c.Repeat)))
		if c.Kind == train.Atomic {
			out.printf(" at %s", humanize.SIWithDigits(float64(c.StartStep)*stepS, 3, "s"))
		}
		out.printf(" period %s steps (%s) slot %s + %d silent %s %s\n",
			humanize.Comma(int64(c.PeriodSteps)),
			humanize.SIWithDigits(float64(c.PeriodSteps)*stepS, 3, "s"),
			humanize.Comma(int64(c.SlotSteps)),
			c.SilentSlots,
			c.Shape.Topology,
			channels(c, p),
		)
	}

	return out.err
}

// channels formats "E<id>=<amplitude> <unit>" for every channel.
func channels(c train.Command, p platform.Platform) string {
	parts := make([]string, len(c.Electrodes))
	for i, e := range c.Electrodes {
		parts[i] = "E" + humanize.Comma(int64(e)) + "=" + humanize.FtoaWithDigits(c.Amplitudes[i], 3) + " " + p.Unit
	}

	return strings.Join(parts, " ")
}

func plural(n int, noun string) string {
	s := humanize.Comma(int64(n)) + " " + noun
	if n != 1 {
		s += "s"
	}

	return s
}
