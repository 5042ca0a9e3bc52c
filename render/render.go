package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/stimerr"
	"github.com/katalvlaran/pulsetrain/train"
)

// Sink writes a device sequence in some output format.
type Sink interface {
	Render(w io.Writer, seq train.Sequence, p platform.Platform) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(w io.Writer, seq train.Sequence, p platform.Platform) error

// Render calls f.
func (f SinkFunc) Render(w io.Writer, seq train.Sequence, p platform.Platform) error {
	return f(w, seq, p)
}

var sinks = map[string]Sink{
	"text": Text{},
	"json": JSON{Indent: "  "},
}

// Lookup returns the sink registered under name ("text" or "json").
func Lookup(name string) (Sink, error) {
	s, ok := sinks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, stimerr.Wrap("render.Lookup", stimerr.ErrConfiguration, "unknown format %q (known: %s)", name, strings.Join(Formats(), ", "))
	}

	return s, nil
}

// Formats lists the registered sink names.
func Formats() []string {
	out := make([]string, 0, len(sinks))
	for n := range sinks {
		out = append(out, n)
	}
	sort.Strings(out)

	return out
}

// errWriter remembers the first write error so renderers can print freely
// and check once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
