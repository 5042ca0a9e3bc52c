package stim

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/train"
)

// Stage is the position of a derivation in the pipeline
// Unvalidated → Validated → Fitted → Ready, or FitFailed.
type Stage int

const (
	// Unvalidated is the entry stage; nothing has been checked.
	Unvalidated Stage = iota
	// Validated means the request passed Validate.
	Validated
	// Fitted means achievable parameters exist.
	Fitted
	// Ready means the train is scheduled.
	Ready
	// FitFailed is terminal; Snapshot.Err holds the reason.
	FitFailed
)

var stageNames = [...]string{"unvalidated", "validated", "fitted", "ready", "fit-failed"}

// String returns the lowercase stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "stage(?)"
	}

	return stageNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Snapshot is an immutable, fully derived request: the request, its fit on
// one platform and the scheduled train. New snapshots come from Derive or
// Snapshot.With; nothing mutates an existing one.
type Snapshot struct {
	id       uuid.UUID
	platform platform.Platform
	request  Request
	stage    Stage
	err      error
	fit      FitResult
	train    train.Train
	cfg      config
}

// Derive validates, fits and schedules r on p.
//
// It always returns a non-nil snapshot. On failure the snapshot is in
// stage FitFailed, keeps the request for later repair through With, and
// the returned error is a *DeriveError wrapping a stimerr sentinel.
func Derive(p platform.Platform, r Request, opts ...Option) (*Snapshot, error) {
	return derive(p, r.clone(), newConfig(opts...))
}

func derive(p platform.Platform, r Request, cfg config) (*Snapshot, error) {
	s := &Snapshot{id: uuid.New(), platform: p, request: r, stage: Unvalidated, cfg: cfg}
	log := cfg.logger.With(slog.String("snapshot", s.id.String()), slog.String("platform", p.Name))

	fail := func(err error) (*Snapshot, error) {
		derr := &DeriveError{Stage: s.stage, Err: err}
		log.Debug("derive failed", slog.String("stage", s.stage.String()), slog.Any("err", err))
		s.stage, s.err = FitFailed, derr
		s.fit, s.train = FitResult{}, train.Train{}

		return s, derr
	}

	if err := Validate(p, r); err != nil {
		return fail(err)
	}
	s.stage = Validated

	fit, err := fitValidated(p, r)
	if err != nil {
		return fail(err)
	}
	s.fit, s.stage = fit, Fitted
	log.Debug("fitted",
		slog.Float64("rate_pps", fit.RatePPS),
		slog.Int("slot_steps", fit.Layout.SlotSteps),
		slog.Int("repeats", fit.Repeats),
		slog.Int("range", fit.RangeIndex),
		slog.Float64("rate_residual", fit.RateResidual),
		slog.Float64("gap_residual", fit.GapResidual),
	)

	tr, err := schedule(p, r, fit, cfg)
	if err != nil {
		return fail(err)
	}
	s.train, s.stage = tr, Ready
	log.Debug("scheduled", slog.Int("pulses", fit.PulseCount), slog.Int("commands", len(tr.Sequence.Commands)))

	return s, nil
}

// Change edits a copy of the request inside Snapshot.With.
type Change func(*Request)

// With applies changes to a copy of the request and derives a new snapshot
// with the same platform, logger and rng. On failure it returns the
// receiver unchanged together with the error.
func (s *Snapshot) With(changes ...Change) (*Snapshot, error) {
	r := s.request.clone()
	for _, c := range changes {
		c(&r)
	}
	next, err := derive(s.platform, r, s.cfg)
	if err != nil {
		return s, err
	}

	return next, nil
}

// ID returns the unique id of the snapshot.
func (s *Snapshot) ID() uuid.UUID { return s.id }

// Platform returns the descriptor the snapshot was derived on.
func (s *Snapshot) Platform() platform.Platform { return s.platform.Clone() }

// Request returns a copy of the request.
func (s *Snapshot) Request() Request { return s.request.clone() }

// Stage returns Ready or FitFailed.
func (s *Snapshot) Stage() Stage { return s.stage }

// Err returns the derivation error of a FitFailed snapshot.
func (s *Snapshot) Err() error { return s.err }

// Ready reports whether the snapshot carries a fit and a train.
func (s *Snapshot) Ready() bool { return s.stage == Ready }

// Accessors below return deep copies; writing to them leaves s untouched.

// Fit returns the fit result (zero value unless Ready).
func (s *Snapshot) Fit() FitResult { return s.fit.clone() }

// Train returns the scheduled train (zero value unless Ready).
func (s *Snapshot) Train() train.Train { return s.train.Clone() }

// Sequence returns the device-ready command list.
func (s *Snapshot) Sequence() train.Sequence { return s.train.Sequence.Clone() }

// Electrodogram returns the per-electrode trace.
func (s *Snapshot) Electrodogram() train.Electrodogram { return s.train.Electrodogram.Clone() }

// Struct returns a flat key→value projection of the primary parameters
// and, when Ready, the achievable ones. Slices are copies.
func (s *Snapshot) Struct() map[string]any {
	r := s.request
	m := map[string]any{
		"id":               s.id.String(),
		"platform":         s.platform.Name,
		"unit":             s.platform.Unit,
		"stage":            s.stage.String(),
		"topology":         r.Topology.String(),
		"phase_us":         r.PhaseUs,
		"gap_us":           r.GapUs,
		"rate_pps":         r.RatePPS,
		"electrodes":       append([]int(nil), r.Electrodes...),
		"amplitudes":       append([]float64(nil), r.Amplitudes...),
		"max_amplitude":    r.MaxAmplitude,
		"duration_s":       r.DurationS,
		"polarity":         r.Polarity.String(),
		"asymmetry":        r.asymmetry(),
		"two_pulse_gap_us": r.TwoPulseGapUs,
		"inter_pulse_us":   r.InterPulseUs,
		"jitter_us":        r.JitterUs,
		"modulated":        r.Modulator != nil,
	}
	if r.Topology == shape.TwoPulse {
		m["second_sign"] = int(r.SecondSign)
	}
	if s.err != nil {
		m["error"] = s.err.Error()
		var derr *DeriveError
		if errors.As(s.err, &derr) {
			m["failed_after"] = derr.Stage.String()
		}
	}
	if s.stage != Ready {
		return m
	}

	f := s.fit
	m["actual_rate_pps"] = f.RatePPS
	m["actual_phase_us"] = f.PhaseUs
	m["actual_gap_us"] = f.GapUs
	m["actual_two_pulse_gap_us"] = f.TwoPulseGapUs
	m["actual_inter_pulse_us"] = f.InterPulseUs
	m["actual_amplitudes"] = append([]float64(nil), f.Amplitudes...)
	m["amplitude_levels"] = append([]int(nil), f.Levels...)
	m["amplitude_range"] = f.RangeMax
	m["amplitude_step"] = f.AmplitudeStep
	m["repeats"] = f.Repeats
	m["period_steps"] = f.PeriodSteps
	m["slot_steps"] = f.Layout.SlotSteps
	m["phase_steps"] = f.Layout.PhaseSteps
	m["gap_steps"] = f.Layout.GapSteps
	m["padding_steps"] = f.Layout.PaddingSteps
	m["min_period_steps"] = f.Layout.MinPeriodSteps
	m["second_offset_steps"] = f.Layout.SecondOffset
	m["pulse_count"] = f.PulseCount
	m["rate_residual"] = f.RateResidual
	m["gap_residual"] = f.GapResidual
	m["actual_duration_s"] = s.train.Duration()
	m["commands"] = len(s.train.Sequence.Commands)

	return m
}

// Setters for Snapshot.With.

// SetRate sets the requested rate in pulses/s.
func SetRate(pps float64) Change { return func(r *Request) { r.RatePPS = pps } }

// SetPhase sets the phase duration in µs.
func SetPhase(us float64) Change { return func(r *Request) { r.PhaseUs = us } }

// SetGap sets the interphase gap in µs.
func SetGap(us float64) Change { return func(r *Request) { r.GapUs = us } }

// SetAmplitudes replaces the per-channel amplitudes.
func SetAmplitudes(a ...float64) Change {
	a = append([]float64(nil), a...)
	return func(r *Request) { r.Amplitudes = append([]float64(nil), a...) }
}

// SetMaxAmplitude sets the amplitude limit (0 = platform ceiling).
func SetMaxAmplitude(v float64) Change { return func(r *Request) { r.MaxAmplitude = v } }

// SetElectrodes replaces the per-channel electrode ids.
func SetElectrodes(ids ...int) Change {
	ids = append([]int(nil), ids...)
	return func(r *Request) { r.Electrodes = append([]int(nil), ids...) }
}

// SetDuration sets the stimulus duration in seconds.
func SetDuration(s float64) Change { return func(r *Request) { r.DurationS = s } }

// SetPolarity sets the leading-phase polarity.
func SetPolarity(p Polarity) Change { return func(r *Request) { r.Polarity = p } }

// SetTopology switches the pulse topology.
func SetTopology(t shape.Topology) Change { return func(r *Request) { r.Topology = t } }

// SetAsymmetry sets the asymmetry ratio.
func SetAsymmetry(ratio int) Change { return func(r *Request) { r.Asymmetry = ratio } }

// SetTwoPulseGap sets the silent interval between the two pulses in µs.
func SetTwoPulseGap(us float64) Change { return func(r *Request) { r.TwoPulseGapUs = us } }

// SetJitter sets the full jitter window in µs (0 disables jitter).
func SetJitter(us float64) Change { return func(r *Request) { r.JitterUs = us } }

// SetModulator replaces the amplitude modulator (nil removes it).
func SetModulator(m *train.Modulator) Change {
	var c *train.Modulator
	if m != nil {
		c = &train.Modulator{
			Times:   append([]float64(nil), m.Times...),
			Weights: append([]float64(nil), m.Weights...),
		}
	}

	return func(r *Request) { r.Modulator = c }
}
